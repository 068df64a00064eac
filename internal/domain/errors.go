package domain

import "errors"

var (
	// ErrInvalidSession is returned when a quest attempt cannot be constructed
	// from the provided question set.
	ErrInvalidSession = errors.New("invalid quest session")
	// ErrInvalidState is returned when a session method is called in a phase
	// that does not permit it.
	ErrInvalidState = errors.New("invalid session state")
	// ErrInvalidCategory indicates an unknown leaderboard category.
	ErrInvalidCategory = errors.New("invalid leaderboard category")
	// ErrQuestionSource wraps failures propagated from the question source.
	ErrQuestionSource = errors.New("question source failure")
	// ErrTopicNotFound indicates the question source has no questions for the
	// requested topic and level.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrUserNotFound indicates no persisted progress exists for a user.
	ErrUserNotFound = errors.New("user not found")
)

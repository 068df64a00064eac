package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quest-progression-service/internal/domain"
	"quest-progression-service/internal/leaderboard"
	"quest-progression-service/internal/quest"
	"quest-progression-service/internal/streak"
)

// QuestionRepository fetches the question set for one (topic, level), via
// cache or backing store. Implementations return domain.ErrTopicNotFound
// for unsupported topics and wrap other failures in domain.ErrQuestionSource.
type QuestionRepository interface {
	GetQuestions(ctx context.Context, topic string, level int) ([]domain.Question, error)
}

// ProgressStore persists per-user progress (in-memory, Redis, Postgres).
// Get returns domain.ErrUserNotFound for unknown users.
type ProgressStore interface {
	Get(ctx context.Context, userID string) (domain.UserProgress, error)
	Save(ctx context.Context, progress domain.UserProgress) error
	List(ctx context.Context) ([]domain.UserProgress, error)
}

// QuestService wires the quest, progression, streak and leaderboard cores
// to their collaborators. Sessions never touch storage themselves; this
// layer reads snapshots, hands deltas to the store and nothing else.
type QuestService struct {
	questions QuestionRepository
	progress  ProgressStore
	runnerCfg quest.RunnerConfig
}

func NewQuestService(questions QuestionRepository, progress ProgressStore, runnerCfg quest.RunnerConfig) *QuestService {
	return &QuestService{questions: questions, progress: progress, runnerCfg: runnerCfg}
}

// StartQuest fetches questions and returns a running attempt. A question
// source failure aborts quest entry entirely; there is no partial session.
func (s *QuestService) StartQuest(ctx context.Context, topic string, level int) (*quest.Runner, error) {
	questions, err := s.questions.GetQuestions(ctx, topic, level)
	if err != nil {
		return nil, err
	}
	session, err := quest.StartSession(topic, level, questions)
	if err != nil {
		return nil, err
	}
	return quest.NewRunner(session, s.runnerCfg), nil
}

// CompleteQuest turns a completed attempt into a QuestLevelResult and
// persists the new EXP, level and quest aggregates for the user. Attempts
// abandoned before completion are simply never passed here and leave no
// trace.
func (s *QuestService) CompleteQuest(ctx context.Context, userID, username string, runner *quest.Runner) (domain.QuestLevelResult, error) {
	if !runner.Completed() {
		return domain.QuestLevelResult{}, fmt.Errorf("%w: quest attempt not completed", domain.ErrInvalidState)
	}

	progress, err := s.getOrInit(ctx, userID, username)
	if err != nil {
		return domain.QuestLevelResult{}, err
	}

	result, err := runner.Result(progress.Exp, progress.Level)
	if err != nil {
		return domain.QuestLevelResult{}, err
	}

	progress.Exp += result.ExpAwarded
	progress.Level = result.NewLevel
	if result.Passed {
		progress.CompletedQuests++
		progress.TotalScore += result.Score
	}
	if err := s.progress.Save(ctx, progress); err != nil {
		return domain.QuestLevelResult{}, err
	}
	return result, nil
}

// RecordLogin runs the streak tracker once for a session start and persists
// the outcome. Idempotent within one calendar day.
func (s *QuestService) RecordLogin(ctx context.Context, userID, username string, now time.Time) (domain.StreakUpdate, error) {
	progress, err := s.getOrInit(ctx, userID, username)
	if err != nil {
		return domain.StreakUpdate{}, err
	}

	upd := streak.Update(progress.LastLogin, now, progress.LoginStreak, progress.LongestStreak, progress.TotalLogins)
	progress.LoginStreak = upd.Streak
	progress.LongestStreak = upd.LongestStreak
	progress.TotalLogins = upd.TotalLogins
	if upd.DidLoginToday || progress.LastLogin == nil {
		login := now
		progress.LastLogin = &login
	}
	if err := s.progress.Save(ctx, progress); err != nil {
		return domain.StreakUpdate{}, err
	}
	return upd, nil
}

// Leaderboard ranks a fresh snapshot of every user's aggregates.
func (s *QuestService) Leaderboard(ctx context.Context, category leaderboard.Category, requestingUserID string) (domain.Leaderboard, error) {
	rows, err := s.progress.List(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	snapshot := make([]domain.UserAggregate, len(rows))
	for i, row := range rows {
		snapshot[i] = row.Aggregate()
	}
	return leaderboard.Compute(snapshot, category, requestingUserID)
}

// Progress returns the persisted progress for profile display.
func (s *QuestService) Progress(ctx context.Context, userID string) (domain.UserProgress, error) {
	return s.progress.Get(ctx, userID)
}

func (s *QuestService) getOrInit(ctx context.Context, userID, username string) (domain.UserProgress, error) {
	progress, err := s.progress.Get(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.UserProgress{UserID: userID, Username: username, Level: 1}, nil
	}
	if err != nil {
		return domain.UserProgress{}, err
	}
	if username != "" {
		progress.Username = username
	}
	return progress, nil
}

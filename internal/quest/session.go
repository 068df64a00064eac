// Package quest implements the state machine for one timed quiz attempt at
// one quest level: question sequencing, per-question countdown, feedback,
// scoring, pass/fail and the EXP award handed back to the caller.
package quest

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"quest-progression-service/internal/domain"
	"quest-progression-service/internal/progression"
)

// Phase is the lifecycle stage of a session.
type Phase int

const (
	PhaseAwaitingAnswer Phase = iota
	PhaseShowingFeedback
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAnswer:
		return "awaitingAnswer"
	case PhaseShowingFeedback:
		return "showingFeedback"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

const (
	// QuestionTimeLimit is the countdown, in seconds, for each question.
	QuestionTimeLimit = 20
	// TimeoutSentinel is recorded as the answer when the countdown expires.
	// It can never match a correct option index.
	TimeoutSentinel = -1
)

// Feedback describes the outcome of the most recently answered question.
type Feedback struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      int    `json:"selected"`
	Correct       bool   `json:"correct"`
	AutoAnswered  bool   `json:"autoAnswered"`
	CorrectOption int    `json:"correctOptionIndex"`
	Explanation   string `json:"explanation,omitempty"`
}

// Session is a single attempt at one quest level. It is a single-caller
// state machine: it holds no lock of its own and must be driven by one
// goroutine at a time (the Runner serializes access when timers are live).
// Once completed it is terminal; retrying a level means a new Session.
type Session struct {
	id        string
	topic     string
	level     int
	questions []domain.Question

	current       int
	answers       []int
	autoAnswered  []bool
	phase         Phase
	timeRemaining int

	score  int
	passed bool
}

// StartSession validates the question set and returns a fresh attempt on
// question 0 with a full countdown.
func StartSession(topic string, level int, questions []domain.Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question set for %s level %d", domain.ErrInvalidSession, topic, level)
	}
	if level < 0 || level > progression.MaxLevel {
		return nil, fmt.Errorf("%w: level %d out of range", domain.ErrInvalidSession, level)
	}
	for i, q := range questions {
		if len(q.Options) != domain.OptionsPerQuestion {
			return nil, fmt.Errorf("%w: question %d has %d options", domain.ErrInvalidSession, i, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d correct option %d out of range", domain.ErrInvalidSession, i, q.CorrectOption)
		}
	}
	return &Session{
		id:            uuid.NewString(),
		topic:         topic,
		level:         level,
		questions:     questions,
		phase:         PhaseAwaitingAnswer,
		timeRemaining: QuestionTimeLimit,
	}, nil
}

// Tick elapses one second of the current question's countdown. Outside
// AwaitingAnswer it is a deliberate no-op so a stale timer callback cannot
// corrupt the machine. When the countdown reaches zero the question is
// auto-answered with the timeout sentinel, which never counts as correct.
func (s *Session) Tick() {
	if s.phase != PhaseAwaitingAnswer {
		return
	}
	s.timeRemaining--
	if s.timeRemaining > 0 {
		return
	}
	s.timeRemaining = 0
	s.answers = append(s.answers, TimeoutSentinel)
	s.autoAnswered = append(s.autoAnswered, true)
	s.phase = PhaseShowingFeedback
}

// SelectAnswer locks in an option for the current question and stops the
// countdown by leaving AwaitingAnswer. Returns whether it was correct.
func (s *Session) SelectAnswer(optionIndex int) (bool, error) {
	if s.phase != PhaseAwaitingAnswer {
		return false, fmt.Errorf("%w: select answer during %s", domain.ErrInvalidState, s.phase)
	}
	if optionIndex < 0 || optionIndex >= domain.OptionsPerQuestion {
		return false, fmt.Errorf("%w: option index %d out of range", domain.ErrInvalidState, optionIndex)
	}
	s.answers = append(s.answers, optionIndex)
	s.autoAnswered = append(s.autoAnswered, false)
	s.phase = PhaseShowingFeedback
	return optionIndex == s.questions[s.current].CorrectOption, nil
}

// Advance leaves the feedback window: either onto the next question with a
// fresh countdown, or into Completed with the final score when the last
// question's feedback has been shown.
func (s *Session) Advance() error {
	if s.phase != PhaseShowingFeedback {
		return fmt.Errorf("%w: advance during %s", domain.ErrInvalidState, s.phase)
	}
	if s.current+1 < len(s.questions) {
		s.current++
		s.timeRemaining = QuestionTimeLimit
		s.phase = PhaseAwaitingAnswer
		return nil
	}
	s.score = scoreAnswers(s.questions, s.answers)
	s.passed = s.score >= progression.PassScore
	s.phase = PhaseCompleted
	return nil
}

// scoreAnswers recomputes the percent score from scratch; deterministic for
// a fixed answer sequence. The timeout sentinel never matches a correct
// option.
func scoreAnswers(questions []domain.Question, answers []int) int {
	correct := 0
	for i, answer := range answers {
		if answer == questions[i].CorrectOption {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(questions))))
}

// Result combines the completed attempt with the caller-supplied progress
// snapshot into the immutable outcome to persist. Pure beyond the error
// check: calling it twice yields the same result.
func (s *Session) Result(currentExp, currentLevel int) (domain.QuestLevelResult, error) {
	if s.phase != PhaseCompleted {
		return domain.QuestLevelResult{}, fmt.Errorf("%w: result requested during %s", domain.ErrInvalidState, s.phase)
	}
	awarded := progression.AwardExp(s.level, s.score, s.passed)
	applied := progression.ApplyExp(currentExp, currentLevel, awarded)
	return domain.QuestLevelResult{
		Topic:             s.topic,
		Level:             s.level,
		Score:             s.score,
		Passed:            s.passed,
		ExpAwarded:        awarded,
		LeveledUp:         applied.LeveledUp,
		NewLevel:          applied.NewLevel,
		NextLevelUnlocked: s.passed && s.level < progression.MaxLevel,
	}, nil
}

func (s *Session) ID() string        { return s.id }
func (s *Session) Topic() string     { return s.topic }
func (s *Session) Level() int        { return s.level }
func (s *Session) Phase() Phase      { return s.phase }
func (s *Session) CurrentIndex() int { return s.current }
func (s *Session) TimeRemaining() int {
	return s.timeRemaining
}

// QuestionCount returns the fixed length of the attempt.
func (s *Session) QuestionCount() int { return len(s.questions) }

// CurrentQuestion returns the question under the cursor.
func (s *Session) CurrentQuestion() domain.Question {
	return s.questions[s.current]
}

// AnsweredCount returns how many questions have a recorded answer.
func (s *Session) AnsweredCount() int { return len(s.answers) }

// AnswerAt returns the recorded answer for index i (TimeoutSentinel for a
// timed-out question) and whether it was auto-answered.
func (s *Session) AnswerAt(i int) (answer int, auto bool, ok bool) {
	if i < 0 || i >= len(s.answers) {
		return 0, false, false
	}
	return s.answers[i], s.autoAnswered[i], true
}

// Score is only meaningful once the session is completed.
func (s *Session) Score() int   { return s.score }
func (s *Session) Passed() bool { return s.passed }

// LastFeedback describes the most recently answered question. Only valid
// while at least one answer has been recorded.
func (s *Session) LastFeedback() (Feedback, bool) {
	if len(s.answers) == 0 {
		return Feedback{}, false
	}
	i := len(s.answers) - 1
	q := s.questions[i]
	return Feedback{
		QuestionIndex: i,
		Selected:      s.answers[i],
		Correct:       !s.autoAnswered[i] && s.answers[i] == q.CorrectOption,
		AutoAnswered:  s.autoAnswered[i],
		CorrectOption: q.CorrectOption,
		Explanation:   q.Explanation,
	}, true
}

// QuestionView is the caller-facing rendering of the current question. The
// correct option is withheld until feedback.
type QuestionView struct {
	Index   int      `json:"index"`
	Text    string   `json:"questionText"`
	Options []string `json:"options"`
}

// State is a caller-facing snapshot of the machine, safe to serialize.
type State struct {
	SessionID     string        `json:"sessionId"`
	Topic         string        `json:"topic"`
	Level         int           `json:"level"`
	Phase         string        `json:"phase"`
	QuestionIndex int           `json:"questionIndex"`
	QuestionCount int           `json:"questionCount"`
	TimeRemaining int           `json:"timeRemaining"`
	Question      *QuestionView `json:"question,omitempty"`
	Feedback      *Feedback     `json:"feedback,omitempty"`
	Score         int           `json:"score"`
	Passed        bool          `json:"passed"`
}

// Snapshot captures the current state for subscribers.
func (s *Session) Snapshot() State {
	st := State{
		SessionID:     s.id,
		Topic:         s.topic,
		Level:         s.level,
		Phase:         s.phase.String(),
		QuestionIndex: s.current,
		QuestionCount: len(s.questions),
		TimeRemaining: s.timeRemaining,
		Score:         s.score,
		Passed:        s.passed,
	}
	switch s.phase {
	case PhaseAwaitingAnswer:
		q := s.questions[s.current]
		st.Question = &QuestionView{Index: s.current, Text: q.Text, Options: q.Options}
	case PhaseShowingFeedback:
		if fb, ok := s.LastFeedback(); ok {
			st.Feedback = &fb
		}
	}
	return st
}

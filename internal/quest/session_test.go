package quest

import (
	"errors"
	"testing"

	"quest-progression-service/internal/domain"
)

func tenQuestions() []domain.Question {
	qs := make([]domain.Question, 10)
	for i := range qs {
		qs[i] = domain.Question{
			ID:            "q" + string(rune('0'+i)),
			Text:          "pick the second option",
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 1,
			Explanation:   "the second option was correct",
		}
	}
	return qs
}

func mustStart(t *testing.T, qs []domain.Question) *Session {
	t.Helper()
	s, err := StartSession("go", 1, qs)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return s
}

// answerAndAdvance locks in an answer and steps through the feedback window.
func answerAndAdvance(t *testing.T, s *Session, option int) {
	t.Helper()
	if _, err := s.SelectAnswer(option); err != nil {
		t.Fatalf("select answer: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
}

func TestStartSessionRejectsEmptyQuestions(t *testing.T) {
	_, err := StartSession("go", 0, nil)
	if !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestStartSessionRejectsBadLevel(t *testing.T) {
	if _, err := StartSession("go", 6, tenQuestions()); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for level 6, got %v", err)
	}
	if _, err := StartSession("go", -1, tenQuestions()); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for level -1, got %v", err)
	}
}

func TestStartSessionRejectsMalformedQuestion(t *testing.T) {
	qs := tenQuestions()
	qs[4].Options = qs[4].Options[:3]
	if _, err := StartSession("go", 0, qs); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for short options, got %v", err)
	}

	qs = tenQuestions()
	qs[2].CorrectOption = 4
	if _, err := StartSession("go", 0, qs); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for bad correct index, got %v", err)
	}
}

func TestInitialState(t *testing.T) {
	s := mustStart(t, tenQuestions())
	if s.Phase() != PhaseAwaitingAnswer {
		t.Fatalf("expected AwaitingAnswer, got %s", s.Phase())
	}
	if s.CurrentIndex() != 0 || s.TimeRemaining() != QuestionTimeLimit || s.AnsweredCount() != 0 {
		t.Fatalf("unexpected initial state: index=%d time=%d answered=%d",
			s.CurrentIndex(), s.TimeRemaining(), s.AnsweredCount())
	}
}

func TestSeventyPercentPassesExactly(t *testing.T) {
	s := mustStart(t, tenQuestions())
	// Correct on 0-6, wrong on 7-9.
	for i := 0; i < 7; i++ {
		answerAndAdvance(t, s, 1)
	}
	for i := 7; i < 10; i++ {
		answerAndAdvance(t, s, 0)
	}
	if s.Phase() != PhaseCompleted {
		t.Fatalf("expected Completed, got %s", s.Phase())
	}
	if s.Score() != 70 {
		t.Fatalf("expected score 70, got %d", s.Score())
	}
	if !s.Passed() {
		t.Fatalf("expected exactly 70 to pass")
	}
}

func TestSixtyPercentFails(t *testing.T) {
	s := mustStart(t, tenQuestions())
	for i := 0; i < 6; i++ {
		answerAndAdvance(t, s, 1)
	}
	for i := 6; i < 10; i++ {
		answerAndAdvance(t, s, 0)
	}
	if s.Score() != 60 || s.Passed() {
		t.Fatalf("expected 60/fail, got %d/%v", s.Score(), s.Passed())
	}
}

func TestTimeoutRecordsSentinel(t *testing.T) {
	s := mustStart(t, tenQuestions())
	// Reach question 3.
	for i := 0; i < 3; i++ {
		answerAndAdvance(t, s, 1)
	}
	// Drive the countdown to zero without answering.
	for i := 0; i < QuestionTimeLimit; i++ {
		s.Tick()
	}
	if s.Phase() != PhaseShowingFeedback {
		t.Fatalf("expected ShowingFeedback after timeout, got %s", s.Phase())
	}
	answer, auto, ok := s.AnswerAt(3)
	if !ok || answer != TimeoutSentinel || !auto {
		t.Fatalf("expected auto-answered timeout sentinel at 3, got answer=%d auto=%v ok=%v", answer, auto, ok)
	}
	fb, ok := s.LastFeedback()
	if !ok || fb.Correct || !fb.AutoAnswered {
		t.Fatalf("timeout feedback should be incorrect and auto-answered, got %+v", fb)
	}
}

func TestTickOutsideAwaitingAnswerIsNoop(t *testing.T) {
	s := mustStart(t, tenQuestions())
	if _, err := s.SelectAnswer(1); err != nil {
		t.Fatalf("select answer: %v", err)
	}
	before := s.AnsweredCount()
	s.Tick()
	s.Tick()
	if s.Phase() != PhaseShowingFeedback || s.AnsweredCount() != before {
		t.Fatalf("stray ticks mutated the session: phase=%s answered=%d", s.Phase(), s.AnsweredCount())
	}
}

func TestCountdownStopsAfterAnswer(t *testing.T) {
	s := mustStart(t, tenQuestions())
	s.Tick()
	s.Tick()
	if s.TimeRemaining() != QuestionTimeLimit-2 {
		t.Fatalf("expected countdown at %d, got %d", QuestionTimeLimit-2, s.TimeRemaining())
	}
	if _, err := s.SelectAnswer(0); err != nil {
		t.Fatalf("select answer: %v", err)
	}
	s.Tick()
	if s.TimeRemaining() != QuestionTimeLimit-2 {
		t.Fatalf("countdown continued after the answer was locked in")
	}
}

func TestSelectAnswerInvalidStates(t *testing.T) {
	s := mustStart(t, tenQuestions())
	if _, err := s.SelectAnswer(4); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for out-of-range option, got %v", err)
	}
	if _, err := s.SelectAnswer(-1); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for negative option, got %v", err)
	}
	if s.AnsweredCount() != 0 {
		t.Fatalf("failed selects must not record answers")
	}

	if _, err := s.SelectAnswer(1); err != nil {
		t.Fatalf("select answer: %v", err)
	}
	if _, err := s.SelectAnswer(2); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for double answer, got %v", err)
	}
	if s.AnsweredCount() != 1 {
		t.Fatalf("rejected select mutated answers")
	}
}

func TestAdvanceInvalidStates(t *testing.T) {
	s := mustStart(t, tenQuestions())
	if err := s.Advance(); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState advancing while awaiting, got %v", err)
	}

	for i := 0; i < 10; i++ {
		answerAndAdvance(t, s, 1)
	}
	if err := s.Advance(); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState advancing after completion, got %v", err)
	}
}

func TestAnswersNeverGapOrOverflow(t *testing.T) {
	s := mustStart(t, tenQuestions())
	for i := 0; i < 10; i++ {
		if s.AnsweredCount() != s.CurrentIndex() {
			t.Fatalf("question %d: %d answers while awaiting", i, s.AnsweredCount())
		}
		if _, err := s.SelectAnswer(1); err != nil {
			t.Fatalf("select answer: %v", err)
		}
		if s.AnsweredCount() != s.CurrentIndex()+1 {
			t.Fatalf("question %d: %d answers while showing feedback", i, s.AnsweredCount())
		}
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if s.AnsweredCount() != s.QuestionCount() {
		t.Fatalf("completed with %d answers for %d questions", s.AnsweredCount(), s.QuestionCount())
	}
}

func TestResultPassedWithBonus(t *testing.T) {
	s := mustStart(t, tenQuestions())
	// 9 of 10 correct: score 90, two full tens over the threshold.
	for i := 0; i < 9; i++ {
		answerAndAdvance(t, s, 1)
	}
	answerAndAdvance(t, s, 0)

	res, err := s.Result(80, 1)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	// base 50 * (level 1 + 1) + bonus 20.
	if res.ExpAwarded != 120 {
		t.Fatalf("expected 120 exp, got %d", res.ExpAwarded)
	}
	if !res.Passed || res.Score != 90 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.LeveledUp || res.NewLevel != 3 {
		t.Fatalf("80+120=200 exp should be level 3, got %+v", res)
	}
	if !res.NextLevelUnlocked {
		t.Fatalf("passing level 1 should unlock level 2")
	}

	// Result is idempotent.
	again, err := s.Result(80, 1)
	if err != nil || again != res {
		t.Fatalf("recomputed result differs: %+v vs %+v (%v)", again, res, err)
	}
}

func TestResultFailedAwardsNothing(t *testing.T) {
	s := mustStart(t, tenQuestions())
	for i := 0; i < 10; i++ {
		answerAndAdvance(t, s, 0)
	}
	res, err := s.Result(80, 1)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.ExpAwarded != 0 || res.Passed || res.NextLevelUnlocked || res.LeveledUp {
		t.Fatalf("failed attempt must award nothing, got %+v", res)
	}
	if res.NewLevel != 1 {
		t.Fatalf("level must not change on failure, got %d", res.NewLevel)
	}
}

func TestMaxLevelPassDoesNotUnlock(t *testing.T) {
	qs := tenQuestions()
	s, err := StartSession("go", 5, qs)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	for i := 0; i < 10; i++ {
		answerAndAdvance(t, s, 1)
	}
	res, err := s.Result(0, 1)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !res.Passed || res.NextLevelUnlocked {
		t.Fatalf("level 5 pass means topic mastered, no unlock: %+v", res)
	}
	// base 50 * 6 + bonus 30 for a perfect score.
	if res.ExpAwarded != 330 {
		t.Fatalf("expected 330 exp, got %d", res.ExpAwarded)
	}
}

func TestResultBeforeCompletionFails(t *testing.T) {
	s := mustStart(t, tenQuestions())
	if _, err := s.Result(0, 1); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

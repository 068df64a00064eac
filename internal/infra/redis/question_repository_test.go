package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quest-progression-service/internal/domain"
	"quest-progression-service/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string][]domain.Question{
			memory.StaticKey("go", 0): sampleQuestions(),
		}),
	}
	repo := NewQuestionRepository(client, loader, time.Minute)

	questions, err := repo.GetQuestions(context.Background(), "go", 0)
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectOption != 1 {
		t.Fatalf("unexpected questions %+v", questions)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quest:go:0:questions") {
		t.Fatalf("expected question set cached in redis")
	}

	// Second call should hit the redis cache, loader not incremented.
	cached, err := repo.GetQuestions(context.Background(), "go", 0)
	if err != nil {
		t.Fatalf("get questions cached: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached[0].Explanation != questions[0].Explanation {
		t.Fatalf("cached question lost fields: %+v", cached[0])
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, topic string, level int) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, topic, level)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "6"},
			CorrectOption: 1,
			Explanation:   "basic arithmetic",
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quest-progression-service/internal/domain"
)

// QuestionLoader fetches a question set from a backing store (static table,
// document DB, generator service).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, topic string, level int) ([]domain.Question, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated
// backing-store hits. This is the injectable cache collaborator sessions
// are constructed from; tests supply a static loader for determinism.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, topic string, level int) ([]domain.Question, error) {
	key := setKey(topic, level)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, topic, level)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedSet{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func setKey(topic string, level int) string {
	return fmt.Sprintf("%s:%d", topic, level)
}

// StaticQuestionLoader serves question sets from an in-memory table keyed by
// topic and level (tests/demos).
type StaticQuestionLoader struct {
	sets map[string][]domain.Question
}

func NewStaticQuestionLoader(sets map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{sets: sets}
}

// StaticKey builds the lookup key used by StaticQuestionLoader tables.
func StaticKey(topic string, level int) string {
	return setKey(topic, level)
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, topic string, level int) ([]domain.Question, error) {
	if questions, ok := l.sets[setKey(topic, level)]; ok {
		return questions, nil
	}
	return nil, fmt.Errorf("%w: %s level %d", domain.ErrTopicNotFound, topic, level)
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quest-progression-service/internal/domain"
)

// QuestionLoader loads question-set JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, topic string, level int) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT questions FROM question_sets WHERE topic=$1 AND level=$2`,
		topic, level,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s level %d", domain.ErrTopicNotFound, topic, level)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", domain.ErrQuestionSource, err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("%w: unmarshal questions: %v", domain.ErrQuestionSource, err)
	}
	return questions, nil
}

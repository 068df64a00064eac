package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quest-progression-service/internal/domain"
)

// ProgressStore persists user progress rows in Postgres.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

const progressColumns = `user_id, username, exp, level, login_streak, longest_streak,
	total_logins, completed_quests, total_score, last_login`

func (s *ProgressStore) Get(ctx context.Context, userID string) (domain.UserProgress, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id=$1`, userID)
	progress, err := scanProgress(row)
	if err == pgx.ErrNoRows {
		return domain.UserProgress{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("get progress: %w", err)
	}
	return progress, nil
}

func (s *ProgressStore) Save(ctx context.Context, p domain.UserProgress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_progress (`+progressColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (user_id) DO UPDATE SET
			username=EXCLUDED.username,
			exp=EXCLUDED.exp,
			level=EXCLUDED.level,
			login_streak=EXCLUDED.login_streak,
			longest_streak=EXCLUDED.longest_streak,
			total_logins=EXCLUDED.total_logins,
			completed_quests=EXCLUDED.completed_quests,
			total_score=EXCLUDED.total_score,
			last_login=EXCLUDED.last_login`,
		p.UserID, p.Username, p.Exp, p.Level, p.LoginStreak, p.LongestStreak,
		p.TotalLogins, p.CompletedQuests, p.TotalScore, p.LastLogin,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) List(ctx context.Context) ([]domain.UserProgress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+progressColumns+` FROM user_progress ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []domain.UserProgress
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, progress)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (domain.UserProgress, error) {
	var p domain.UserProgress
	var lastLogin *time.Time
	err := row.Scan(&p.UserID, &p.Username, &p.Exp, &p.Level, &p.LoginStreak,
		&p.LongestStreak, &p.TotalLogins, &p.CompletedQuests, &p.TotalScore, &lastLogin)
	if err != nil {
		return domain.UserProgress{}, err
	}
	p.LastLogin = lastLogin
	return p, nil
}

// Package database defines the insertions and transactions to the database
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"menu-qa/internal/shared"
)

type DailyStats struct {
	Date             string
	Category         string
	QuestionCount    uint64
	CachedCount      uint64
	CanceledCount    uint64
	TimeToFirstDelta int64
	TotalTime        int64
}

// SaveQuestions inserts the records into question_log in one statement.
func SaveQuestions(ctx context.Context, tx *sql.Tx, records []*shared.QuestionRecord) error {
	query, vals := questionInsert(records)
	if query == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("failed to save questions: %w", err)
	}
	return nil
}

// UpdateDailyStats folds the records into question_daily_stats, one row per
// day and category.
func UpdateDailyStats(ctx context.Context, tx *sql.Tx, records []*shared.QuestionRecord) error {
	query, vals := dailyStatsUpsert(aggregateDaily(records))
	if query == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("failed to update daily stats: %w", err)
	}
	return nil
}

func questionInsert(records []*shared.QuestionRecord) (string, []any) {
	if len(records) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO question_log (
            request_id, client_key, category, intent, mode, cached,
            answer_chars, time_to_first_delta, total_time, created_at
        ) VALUES`)
	vals := make([]any, 0, len(records)*10)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		vals = append(vals,
			r.RequestID, r.ClientKey, r.Category, r.Intent, r.Mode, r.Cached,
			r.AnswerChars, r.TimeToFirstDelta.Milliseconds(), r.TotalTime.Milliseconds(),
			r.CreatedAt,
		)
	}
	return b.String(), vals
}

func aggregateDaily(records []*shared.QuestionRecord) []*DailyStats {
	aggregated := make(map[string]*DailyStats)
	var order []string
	for _, r := range records {
		day := r.CreatedAt.UTC().Format(time.DateOnly)
		key := day + "|" + r.Category
		s, ok := aggregated[key]
		if !ok {
			s = &DailyStats{Date: day, Category: r.Category}
			aggregated[key] = s
			order = append(order, key)
		}
		s.QuestionCount++
		if r.Cached {
			s.CachedCount++
		}
		if r.Canceled() {
			s.CanceledCount++
			continue
		}
		s.TimeToFirstDelta += r.TimeToFirstDelta.Milliseconds()
		s.TotalTime += r.TotalTime.Milliseconds()
	}
	out := make([]*DailyStats, len(order))
	for i, k := range order {
		out[i] = aggregated[k]
	}
	return out
}

func dailyStatsUpsert(stats []*DailyStats) (string, []any) {
	if len(stats) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO question_daily_stats (
		date, category, question_count, cached_count, canceled_count, time_to_first_delta, total_time
	) VALUES`)
	vals := make([]any, 0, len(stats)*7)
	for i, s := range stats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		vals = append(vals, s.Date, s.Category, s.QuestionCount, s.CachedCount, s.CanceledCount, s.TimeToFirstDelta, s.TotalTime)
	}
	b.WriteString(` ON DUPLICATE KEY UPDATE
		question_count = question_count + VALUES(question_count),
		cached_count = cached_count + VALUES(cached_count),
		canceled_count = canceled_count + VALUES(canceled_count),
		time_to_first_delta = time_to_first_delta + VALUES(time_to_first_delta),
		total_time = total_time + VALUES(total_time)`)
	return b.String(), vals
}

// ExecuteTransaction executes one transaction with one or multiple database executions.
func ExecuteTransaction(ctx context.Context, writeDB *sql.DB, fns []func(*sql.Tx) error) error {
	tx, err := writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, fn := range fns {
		if err := fn(tx); err != nil {
			return fmt.Errorf("failed to execute transaction function: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// QuestionStore persists question log batches to MySQL.
type QuestionStore struct {
	db *sql.DB
}

func NewQuestionStore(db *sql.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) SaveBatch(ctx context.Context, records []*shared.QuestionRecord) error {
	return ExecuteTransaction(ctx, s.db, []func(*sql.Tx) error{
		func(tx *sql.Tx) error { return SaveQuestions(ctx, tx, records) },
		func(tx *sql.Tx) error { return UpdateDailyStats(ctx, tx, records) },
	})
}

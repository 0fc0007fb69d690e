package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/opinionbot/gotrader/internal/trading"
)

// Journal 批次运行日志（sqlite）。
// 只记录调度状态：哪个批次、哪些账户、各自成败。持仓和订单本身不落库。
type Journal struct {
	db *sql.DB
}

// Run 一次批量调度的记录
type Run struct {
	ID         string
	Action     string
	Requested  int
	Completed  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunResult 批次内单账户的结果
type RunResult struct {
	RunID  string
	AccIdx int
	OK     bool
	Detail string
}

// Open 打开（或创建）批次日志
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close 关闭日志
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  requested INTEGER NOT NULL,
  completed INTEGER NOT NULL,
  failed INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS run_results (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  acc_idx INTEGER NOT NULL,
  ok INTEGER NOT NULL,
  detail TEXT,
  PRIMARY KEY (run_id, acc_idx)
);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);`,
	}
	for _, s := range stmts {
		if _, err := j.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("journal migrate: %w", err)
		}
	}
	return nil
}

// RecordRun implements trading.RunRecorder.
func (j *Journal) RecordRun(action string, requested []int, results trading.DispatchResult, startedAt, finishedAt time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	runID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id,action,requested,completed,failed,started_at,finished_at)
VALUES (?,?,?,?,?,?,?)
`, runID, action, len(requested), len(results), failed,
		startedAt.Format(time.RFC3339Nano), finishedAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}

	for accIdx, r := range results {
		detail := r.Err
		if r.OK() {
			detail = ""
		}
		ok := 0
		if r.OK() {
			ok = 1
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO run_results (run_id,acc_idx,ok,detail) VALUES (?,?,?,?)
`, runID, accIdx, ok, detail); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns 按时间倒序列出最近的批次
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id,action,requested,completed,failed,started_at,finished_at
FROM runs ORDER BY started_at DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Action, &r.Requested, &r.Completed, &r.Failed, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunResults 列出某个批次的账户级结果
func (j *Journal) RunResults(ctx context.Context, runID string) ([]RunResult, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT run_id,acc_idx,ok,detail FROM run_results WHERE run_id=? ORDER BY acc_idx
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunResult
	for rows.Next() {
		var r RunResult
		var ok int
		if err := rows.Scan(&r.RunID, &r.AccIdx, &ok, &r.Detail); err != nil {
			return nil, err
		}
		r.OK = ok == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

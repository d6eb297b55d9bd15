// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vargamartonaron/cogex/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for run data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			practice_trials INTEGER NOT NULL,
			experiment_trials INTEGER NOT NULL,
			fixation_min_ms INTEGER NOT NULL,
			fixation_max_ms INTEGER NOT NULL,
			stimulus_ms INTEGER NOT NULL,
			response_window_ms INTEGER NOT NULL,
			feedback_ms INTEGER NOT NULL,
			inter_trial_ms INTEGER NOT NULL,
			frame_rate INTEGER NOT NULL,
			degraded INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trial_results (
			run_id INTEGER NOT NULL,
			trial_id INTEGER NOT NULL,
			phase TEXT NOT NULL,
			stimulus TEXT NOT NULL,
			reaction_ns INTEGER,
			correct INTEGER NOT NULL,
			recorded_at_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, trial_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_trial_results_stimulus ON trial_results(stimulus);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a completed run and its trial results.
func (s *Store) InsertRun(ctx context.Context, run model.RunInfo, records []model.ResultRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, ended_at, seed, practice_trials, experiment_trials,
			fixation_min_ms, fixation_max_ms, stimulus_ms, response_window_ms, feedback_ms,
			inter_trial_ms, frame_rate, degraded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Format(time.RFC3339Nano),
		run.EndedAt.Format(time.RFC3339Nano),
		run.Seed,
		run.Config.PracticeTrials,
		run.Config.ExperimentTrials,
		run.Config.FixationMinMs,
		run.Config.FixationMaxMs,
		run.Config.StimulusMs,
		run.Config.ResponseWindowMs,
		run.Config.FeedbackMs,
		run.Config.InterTrialMs,
		run.FrameRate,
		boolToInt(run.Degraded),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(records) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO trial_results (run_id, trial_id, phase, stimulus, reaction_ns, correct, recorded_at_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, rec := range records {
			phase := "experiment"
			if rec.Practice {
				phase = "practice"
			}
			var reaction any
			if rec.ReactionTimeNs != nil {
				reaction = *rec.ReactionTimeNs
			}
			if _, err := stmt.ExecContext(ctx, id, rec.TrialID, phase, rec.StimulusType, reaction, boolToInt(rec.ResponseCorrect), rec.Timestamp); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns stored runs with per-run tallies, oldest first, filtered
// by the stats config.
func (s *Store) ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunInfo, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "r.ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	phaseClause := "t.phase = 'experiment'"
	if cfg.IncludePractice {
		phaseClause = "1=1"
	}
	query := fmt.Sprintf(`SELECT r.id, r.started_at, r.ended_at, r.seed,
			r.practice_trials, r.experiment_trials, r.fixation_min_ms, r.fixation_max_ms,
			r.stimulus_ms, r.response_window_ms, r.feedback_ms, r.inter_trial_ms,
			r.frame_rate, r.degraded,
			COUNT(t.trial_id),
			COALESCE(SUM(CASE WHEN t.reaction_ns IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(t.correct), 0),
			COALESCE(SUM(t.reaction_ns), 0),
			COALESCE(SUM(CASE WHEN t.reaction_ns IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN trial_results t ON t.run_id = r.id AND %s
		WHERE %s
		GROUP BY r.id
		ORDER BY r.ended_at ASC`, phaseClause, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunInfo
	for rows.Next() {
		var run model.RunInfo
		var startedAt, endedAt string
		var degraded int
		if err := rows.Scan(&run.RunID, &startedAt, &endedAt, &run.Seed,
			&run.Config.PracticeTrials, &run.Config.ExperimentTrials,
			&run.Config.FixationMinMs, &run.Config.FixationMaxMs,
			&run.Config.StimulusMs, &run.Config.ResponseWindowMs,
			&run.Config.FeedbackMs, &run.Config.InterTrialMs,
			&run.FrameRate, &degraded,
			&run.Trials, &run.Timeouts, &run.Correct, &run.RTSumNs, &run.RTCount); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if run.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		run.Degraded = degraded != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// ListResults returns the stored records of one run in trial order.
func (s *Store) ListResults(ctx context.Context, runID int64) ([]model.ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trial_id, phase, stimulus, reaction_ns, correct, recorded_at_ms
		 FROM trial_results WHERE run_id = ? ORDER BY trial_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.ResultRecord
	for rows.Next() {
		var rec model.ResultRecord
		var phase string
		var reaction sql.NullInt64
		var correct int
		if err := rows.Scan(&rec.TrialID, &phase, &rec.StimulusType, &reaction, &correct, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Practice = phase == "practice"
		rec.ResponseCorrect = correct != 0
		if reaction.Valid {
			v := reaction.Int64
			rec.ReactionTimeNs = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// RunSeedAndDegraded fetches the replay seed and degraded flag for a run.
func (s *Store) RunSeedAndDegraded(ctx context.Context, runID int64) (int64, bool, error) {
	var seed int64
	var degraded int
	err := s.db.QueryRowContext(ctx,
		`SELECT seed, degraded FROM runs WHERE id = ?`, runID).Scan(&seed, &degraded)
	if err != nil {
		return 0, false, err
	}
	return seed, degraded != 0, nil
}

// GetStimulusAggregates aggregates outcomes per stimulus over the most
// recent runs.
func (s *Store) GetStimulusAggregates(ctx context.Context, window int, includePractice bool) ([]model.StimulusAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	phaseClause := "t.phase = 'experiment'"
	if includePractice {
		phaseClause = "1=1"
	}
	query := fmt.Sprintf(`WITH recent_runs AS (
		SELECT id FROM runs
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT t.stimulus,
		SUM(CASE WHEN t.correct = 1 THEN 1 ELSE 0 END) AS correct,
		SUM(CASE WHEN t.correct = 0 AND t.reaction_ns IS NOT NULL THEN 1 ELSE 0 END) AS incorrect,
		SUM(CASE WHEN t.reaction_ns IS NULL THEN 1 ELSE 0 END) AS timeouts,
		COALESCE(SUM(t.reaction_ns), 0) AS rt_sum_ns,
		SUM(CASE WHEN t.reaction_ns IS NOT NULL THEN 1 ELSE 0 END) AS rt_count
	FROM trial_results t
	JOIN recent_runs r ON r.id = t.run_id
	WHERE %s
	GROUP BY t.stimulus`, phaseClause)

	rows, err := s.db.QueryContext(ctx, query, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.StimulusAggregate
	for rows.Next() {
		var agg model.StimulusAggregate
		if err := rows.Scan(&agg.StimulusType, &agg.Correct, &agg.Incorrect, &agg.Timeouts, &agg.RTSumNs, &agg.RTCount); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

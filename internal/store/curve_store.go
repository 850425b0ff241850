package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/registration.report/internal/aggregate"
	"github.com/banshee-data/registration.report/internal/results"
)

// ErrRunNotFound is returned by Get and Delete for unknown run IDs.
var ErrRunNotFound = errors.New("curve run not found")

// CurveRun is one persisted success curve.
type CurveRun struct {
	RunID     string             `json:"run_id"`
	Dataset   string             `json:"dataset"`
	Fold      string             `json:"fold"`
	Selector  results.Selector   `json:"selector"`
	Threshold float64            `json:"threshold"`
	Trials    int                `json:"trials"`
	Successes int                `json:"successes"`
	Edges     []float64          `json:"edges"`
	Points    []aggregate.Point  `json:"points"`
	Summary   *aggregate.Summary `json:"summary,omitempty"`
	Sources   []string           `json:"sources,omitempty"`
	CreatedAt int64              `json:"created_at"`
}

// NewCurveRun builds a run record from a computed curve.
func NewCurveRun(datasetName string, fold results.Fold, c *aggregate.Curve, summary *aggregate.Summary, sources []string) *CurveRun {
	run := &CurveRun{
		Dataset:   datasetName,
		Fold:      fold.String(),
		Selector:  c.Selector,
		Threshold: c.Threshold,
		Trials:    c.Total(),
		Edges:     c.Edges,
		Points:    c.Points,
		Summary:   summary,
		Sources:   sources,
	}
	for _, p := range c.Points {
		run.Successes += p.Successes
	}
	return run
}

// Curve rebuilds the aggregate curve from the stored record.
func (r *CurveRun) Curve() *aggregate.Curve {
	return &aggregate.Curve{
		Selector:  r.Selector,
		Threshold: r.Threshold,
		Edges:     r.Edges,
		Points:    r.Points,
	}
}

// CurveStore provides persistence for computed curves.
type CurveStore struct {
	db *DB
}

// NewCurveStore creates a new CurveStore.
func NewCurveStore(db *DB) *CurveStore {
	return &CurveStore{db: db}
}

// Insert persists a run. If RunID is empty, a UUID is generated.
func (s *CurveStore) Insert(run *CurveRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.db.clock.Now().UnixNano()
	}

	edges, err := json.Marshal(run.Edges)
	if err != nil {
		return fmt.Errorf("encode edges: %w", err)
	}
	points, err := json.Marshal(run.Points)
	if err != nil {
		return fmt.Errorf("encode points: %w", err)
	}
	var summary, sources interface{}
	if run.Summary != nil {
		b, err := json.Marshal(run.Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		summary = string(b)
	}
	if len(run.Sources) > 0 {
		b, err := json.Marshal(run.Sources)
		if err != nil {
			return fmt.Errorf("encode sources: %w", err)
		}
		sources = string(b)
	}

	return s.db.retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO curve_runs (
				run_id, dataset, fold, method, mode, preprocess,
				threshold, trials, successes, edges_json, points_json,
				summary_json, sources_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Dataset, run.Fold,
			run.Selector.Method, run.Selector.Mode, run.Selector.Preprocess,
			run.Threshold, run.Trials, run.Successes, string(edges), string(points),
			summary, sources, run.CreatedAt,
		)
		return err
	})
}

const selectRun = `
	SELECT run_id, dataset, fold, method, mode, preprocess,
	       threshold, trials, successes, edges_json, points_json,
	       summary_json, sources_json, created_at
	FROM curve_runs`

// List returns the runs for a dataset, newest first. An empty dataset lists
// every run.
func (s *CurveStore) List(datasetName string) ([]*CurveRun, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if datasetName == "" {
		rows, err = s.db.Query(selectRun + ` ORDER BY created_at DESC`)
	} else {
		rows, err = s.db.Query(selectRun+` WHERE dataset = ? ORDER BY created_at DESC`, datasetName)
	}
	if err != nil {
		return nil, fmt.Errorf("query curve runs: %w", err)
	}
	defer rows.Close()

	var runs []*CurveRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns a single run by ID.
func (s *CurveStore) Get(runID string) (*CurveRun, error) {
	r, err := scanRun(s.db.QueryRow(selectRun+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// Delete removes a run by ID.
func (s *CurveStore) Delete(runID string) error {
	return s.db.retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM curve_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete curve run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*CurveRun, error) {
	var (
		r                CurveRun
		edges, points    string
		summary, sources sql.NullString
	)
	err := row.Scan(
		&r.RunID, &r.Dataset, &r.Fold,
		&r.Selector.Method, &r.Selector.Mode, &r.Selector.Preprocess,
		&r.Threshold, &r.Trials, &r.Successes, &edges, &points,
		&summary, &sources, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan curve run: %w", err)
	}
	if err := json.Unmarshal([]byte(edges), &r.Edges); err != nil {
		return nil, fmt.Errorf("run %s: decode edges: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(points), &r.Points); err != nil {
		return nil, fmt.Errorf("run %s: decode points: %w", r.RunID, err)
	}
	if summary.Valid {
		r.Summary = &aggregate.Summary{}
		if err := json.Unmarshal([]byte(summary.String), r.Summary); err != nil {
			return nil, fmt.Errorf("run %s: decode summary: %w", r.RunID, err)
		}
	}
	if sources.Valid {
		if err := json.Unmarshal([]byte(sources.String), &r.Sources); err != nil {
			return nil, fmt.Errorf("run %s: decode sources: %w", r.RunID, err)
		}
	}
	return &r, nil
}

// backend-go/internal/repository/postgres/scenario_repository.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/repository"
)

type scenarioRepository struct {
	db *DB
}

func NewScenarioRepository(db *DB) repository.ScenarioRepository {
	return &scenarioRepository{db: db}
}

// runRow adds the columns ScenarioRun keeps out of its own db mapping.
type runRow struct {
	domain.ScenarioRun
	ReportJSON []byte         `db:"report"`
	Keys       pq.StringArray `db:"storage_keys"`
}

func (row runRow) toRun(withReport bool) (*domain.ScenarioRun, error) {
	run := row.ScenarioRun
	run.StorageKeys = []string(row.Keys)
	if withReport && len(row.ReportJSON) > 0 {
		var rep domain.ScenarioReport
		if err := json.Unmarshal(row.ReportJSON, &rep); err != nil {
			return nil, fmt.Errorf("decode report for run %s: %w", run.ID, err)
		}
		run.Report = &rep
	}
	return &run, nil
}

func (r *scenarioRepository) SaveRun(ctx context.Context, run *domain.ScenarioRun, transfers []domain.TransferDecision, manufacturing []domain.ManufacturingDecision) error {
	var report []byte
	if run.Report != nil {
		var err error
		if report, err = json.Marshal(run.Report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Run header
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenario_runs (
				id, name, status, optimal, input_hash, total_cost,
				runtime_ns, created_at, report, storage_keys
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, runInsertArgs(run, report)...)
		if err != nil {
			return fmt.Errorf("failed to insert scenario run: %w", err)
		}

		// 2. Transfers
		if len(transfers) > 0 {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO scenario_transfers (
					run_id, seq, from_store, to_store, product_id, quantity, cost, reason_codes
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`)
			if err != nil {
				return fmt.Errorf("failed to prepare transfer statement: %w", err)
			}
			defer stmt.Close()

			for i, t := range transfers {
				if _, err := stmt.ExecContext(ctx, transferInsertArgs(run.ID, i+1, t)...); err != nil {
					return fmt.Errorf("failed to insert transfer %d: %w", i+1, err)
				}
			}
		}

		// 3. Manufacturing
		if len(manufacturing) > 0 {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO scenario_manufacturing (
					run_id, seq, store_id, product_id, quantity, cost, reason_codes
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
			`)
			if err != nil {
				return fmt.Errorf("failed to prepare manufacturing statement: %w", err)
			}
			defer stmt.Close()

			for i, m := range manufacturing {
				if _, err := stmt.ExecContext(ctx, manufacturingInsertArgs(run.ID, i+1, m)...); err != nil {
					return fmt.Errorf("failed to insert manufacturing %d: %w", i+1, err)
				}
			}
		}

		return nil
	})
}

// runInsertArgs returns the scenario_runs insert arguments in column order.
func runInsertArgs(run *domain.ScenarioRun, report []byte) []interface{} {
	return []interface{}{
		run.ID, run.Name, run.Status, run.Optimal, run.InputHash, run.TotalCost,
		int64(run.Runtime), run.CreatedAt, report, textArray(run.StorageKeys),
	}
}

func transferInsertArgs(runID string, seq int, t domain.TransferDecision) []interface{} {
	return []interface{}{
		runID, seq, t.FromStore, t.ToStore, t.ProductID, t.Quantity, t.Cost, textArray(t.ReasonCodes),
	}
}

func manufacturingInsertArgs(runID string, seq int, m domain.ManufacturingDecision) []interface{} {
	return []interface{}{
		runID, seq, m.StoreID, m.ProductID, m.Quantity, m.Cost, textArray(m.ReasonCodes),
	}
}

// textArray binds a nil slice as an empty array. pq.Array(nil) binds NULL,
// which the NOT NULL array columns reject.
func textArray(v []string) pq.StringArray {
	if v == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(v)
}

func (r *scenarioRepository) GetRun(ctx context.Context, id string) (*domain.ScenarioRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, status, optimal, input_hash, total_cost, runtime_ns,
		       created_at, report, storage_keys
		FROM scenario_runs
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting scenario run: %w", err)
	}
	return row.toRun(true)
}

func (r *scenarioRepository) ListRuns(ctx context.Context, filter domain.ScenarioRunFilter) ([]domain.ScenarioRun, int, error) {
	where, args := buildRunFilterClause(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM scenario_runs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting scenario runs: %w", err)
	}

	query, args := appendPagination(`
		SELECT id, name, status, optimal, input_hash, total_cost, runtime_ns,
		       created_at, NULL::jsonb AS report, storage_keys
		FROM scenario_runs`+where+`
		ORDER BY created_at DESC, id`, args, filter)

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing scenario runs: %w", err)
	}

	runs := make([]domain.ScenarioRun, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun(false)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *run)
	}
	return runs, total, nil
}

// buildRunFilterClause returns a WHERE clause (or "") and its arguments.
func buildRunFilterClause(filter domain.ScenarioRunFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := 1

	if name := strings.TrimSpace(filter.Name); name != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", idx))
		args = append(args, "%"+name+"%")
		idx++
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func appendPagination(query string, args []interface{}, filter domain.ScenarioRunFilter) (string, []interface{}) {
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

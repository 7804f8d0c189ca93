package postgres

import (
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockopt/backend-go/internal/config"
	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

func TestBuildRunFilterClause(t *testing.T) {
	where, args := buildRunFilterClause(domain.ScenarioRunFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildRunFilterClause(domain.ScenarioRunFilter{Name: " weekly ", Status: "optimal"})
	assert.Equal(t, " WHERE name ILIKE $1 AND status = $2", where)
	assert.Equal(t, []interface{}{"%weekly%", "optimal"}, args)
}

func TestAppendPagination(t *testing.T) {
	query, args := appendPagination("SELECT 1", []interface{}{"optimal"}, domain.ScenarioRunFilter{Limit: 20, Offset: 40})
	assert.Equal(t, "SELECT 1 LIMIT $2 OFFSET $3", query)
	assert.Equal(t, []interface{}{"optimal", 20, 40}, args)

	query, args = appendPagination("SELECT 1", nil, domain.ScenarioRunFilter{})
	assert.Equal(t, "SELECT 1", query)
	assert.Empty(t, args)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "stockopt", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=stockopt sslmode=disable", dsn)
}

func TestRunRowToRun(t *testing.T) {
	row := runRow{
		ScenarioRun: domain.ScenarioRun{ID: "abc", Name: "weekly"},
		ReportJSON:  []byte(`{"transfers":{"scenario":"weekly","transfers":[]},"manufacturing":{"scenario":"weekly","manufacturing_actions":[]},"scenario":{"scenario":"weekly","status":"optimal","optimal":true}}`),
		Keys:        []string{"scenarios/abc/scenario_summary.json"},
	}

	run, err := row.toRun(true)
	assert.NoError(t, err)
	assert.Equal(t, []string{"scenarios/abc/scenario_summary.json"}, run.StorageKeys)
	if assert.NotNil(t, run.Report) {
		assert.Equal(t, "optimal", run.Report.Summary.Status)
	}

	run, err = row.toRun(false)
	assert.NoError(t, err)
	assert.Nil(t, run.Report)
}

func TestRunInsertArgsBindsEmptyStorageKeys(t *testing.T) {
	run := &domain.ScenarioRun{ID: "run-1", Status: "infeasible"}
	args := runInsertArgs(run, nil)
	require.Len(t, args, 10)

	valuer, ok := args[9].(driver.Valuer)
	require.True(t, ok)
	v, err := valuer.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	run.StorageKeys = []string{"runs/run-1/transfers.csv"}
	v, err = storageKeysArg(t, runInsertArgs(run, nil))
	require.NoError(t, err)
	assert.Equal(t, `{"runs/run-1/transfers.csv"}`, v)
}

func TestDecisionInsertArgsBindEmptyReasonCodes(t *testing.T) {
	targs := transferInsertArgs("run-1", 1, domain.TransferDecision{FromStore: 1, ToStore: 2})
	v, err := targs[7].(driver.Valuer).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	margs := manufacturingInsertArgs("run-1", 1, domain.ManufacturingDecision{StoreID: 1})
	v, err = margs[6].(driver.Valuer).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func storageKeysArg(t *testing.T, args []interface{}) (driver.Value, error) {
	t.Helper()
	require.Len(t, args, 10)
	return args[9].(driver.Valuer).Value()
}

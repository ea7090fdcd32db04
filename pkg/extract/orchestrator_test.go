package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/pkg/table"
)

func TestRunJobsSequencesIndependently(t *testing.T) {
	provider := newFakeProvider()
	provider.on("SELECT * FROM sales.orders", rowsResult([]string{"id"}, table.Row{1}))
	// customers has no scripted queries, so its extraction fails.
	provider.on("SELECT * FROM sales.refunds", rowsResult([]string{"id"}, table.Row{2}))

	engine := newTestEngine(t, provider)
	orch := NewOrchestrator(engine)

	jobs := []Job{
		{Schema: "sales", Table: "orders"},
		{Schema: "sales", Table: "customers"},
		{Schema: "sales", Table: "refunds"},
	}

	results, err := orch.RunJobs(context.Background(), jobs, RunOptions{})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results["orders"].RowCount())
	assert.True(t, results["customers"].Empty(), "failed job yields an empty result, not an abort")
	assert.Equal(t, 1, results["refunds"].RowCount(), "jobs after a failure still run")
}

func TestRunJobsDuplicateTableNameLastWins(t *testing.T) {
	provider := newFakeProvider()
	provider.on("SELECT * FROM first.orders", rowsResult([]string{"id"}, table.Row{1}))
	provider.on("SELECT * FROM second.orders", rowsResult([]string{"id"}, table.Row{2}, table.Row{3}))

	engine := newTestEngine(t, provider)
	orch := NewOrchestrator(engine)

	jobs := []Job{
		{Schema: "first", Table: "orders"},
		{Schema: "second", Table: "orders"},
	}

	results, err := orch.RunJobs(context.Background(), jobs, RunOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results["orders"].RowCount())
}

func TestRunJobsPersistsNonemptyResults(t *testing.T) {
	provider := newFakeProvider()
	provider.on("SELECT * FROM sales.orders",
		rowsResult([]string{"id", "amount"}, table.Row{1, "9.99"}))
	provider.on("SELECT * FROM sales.empty", rowsResult([]string{"id"}))

	engine := newTestEngine(t, provider)
	orch := NewOrchestrator(engine)

	dir := filepath.Join(t.TempDir(), "nested", "out")
	jobs := []Job{
		{Schema: "sales", Table: "orders"},
		{Schema: "sales", Table: "empty"},
	}

	_, err := orch.RunJobs(context.Background(), jobs, RunOptions{PersistDir: dir})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "orders.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,amount", lines[0])
	assert.Equal(t, "1,9.99", lines[1])

	// Empty results are not persisted.
	_, err = os.Stat(filepath.Join(dir, "empty.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunJobsRoutesPartitionedAndSequential(t *testing.T) {
	provider := newFakeProvider()
	cols := []string{"id"}
	provider.on("SELECT * FROM t WHERE y = 1", rowsResult(cols, table.Row{1}))
	provider.on("SELECT * FROM t WHERE y = 2", rowsResult(cols, table.Row{2}))
	// The sequential job with a partition column still issues one
	// unfiltered query.
	provider.on("SELECT * FROM u", rowsResult(cols, table.Row{3}))

	engine := newTestEngine(t, provider)
	orch := NewOrchestrator(engine)

	jobs := []Job{
		{Table: "t", PartitionColumn: "y", Keys: []int{1, 2}},
		{Table: "u", PartitionColumn: "y", Sequential: true},
	}

	results, err := orch.RunJobs(context.Background(), jobs, RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, results["t"].RowCount())
	assert.Equal(t, 1, results["u"].RowCount())
}

package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/pkg/table"
)

func TestSequentialFullTable(t *testing.T) {
	provider := newFakeProvider()
	provider.on("SELECT * FROM sales.orders",
		rowsResult([]string{"id"}, table.Row{1}, table.Row{2}))

	engine := newTestEngine(t, provider)

	res, err := engine.RunSequential(context.Background(), Job{Schema: "sales", Table: "orders"}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount())
	assert.Equal(t, 1, provider.openCount())
	assert.Equal(t, 1, provider.closeCount())
}

func TestSequentialPartitionColumnWithoutKeys(t *testing.T) {
	// A partition column alone does not trigger per-key filtering: the
	// whole table still comes back in one unfiltered query.
	provider := newFakeProvider()
	provider.on("SELECT * FROM sales.orders",
		rowsResult([]string{"id", "order_year"}, table.Row{1, 2020}, table.Row{2, 2021}))

	engine := newTestEngine(t, provider)
	job := Job{Schema: "sales", Table: "orders", PartitionColumn: "order_year"}

	res, err := engine.RunSequential(context.Background(), job, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount())
}

func TestSequentialExplicitKeysWithFailure(t *testing.T) {
	provider := newFakeProvider()
	cols := []string{"id"}
	provider.onError("SELECT * FROM sales.orders WHERE order_year = 2021", "timeout scanning relation")
	provider.on("SELECT * FROM sales.orders WHERE order_year = 2022",
		rowsResult(cols, table.Row{1}, table.Row{2}, table.Row{3}, table.Row{4}, table.Row{5}))

	engine := newTestEngine(t, provider)
	job := Job{
		Schema:          "sales",
		Table:           "orders",
		PartitionColumn: "order_year",
		Keys:            []int{2021, 2022},
		Sequential:      true,
	}

	res, err := engine.RunSequential(context.Background(), job, nil)

	require.NoError(t, err)
	assert.Equal(t, 5, res.RowCount(), "exactly the rows of the surviving key")
	require.Len(t, res.KeyErrors, 1)
	assert.Equal(t, 2021, res.KeyErrors[0].Key)
}

func TestSequentialMismatchedKeyIsIsolated(t *testing.T) {
	// A key whose result has a different column set is recorded and
	// skipped, exactly like a key whose query failed.
	provider := newFakeProvider()
	cols := []string{"id", "amount"}
	provider.on("SELECT * FROM sales.orders WHERE order_year = 2020", rowsResult(cols, table.Row{1, 10}))
	provider.on("SELECT * FROM sales.orders WHERE order_year = 2021",
		rowsResult([]string{"id", "total"}, table.Row{2, 20}))
	provider.on("SELECT * FROM sales.orders WHERE order_year = 2022", rowsResult(cols, table.Row{3, 30}))

	engine := newTestEngine(t, provider)
	job := Job{
		Schema:          "sales",
		Table:           "orders",
		PartitionColumn: "order_year",
		Keys:            []int{2020, 2021, 2022},
		Sequential:      true,
	}

	res, err := engine.RunSequential(context.Background(), job, nil)

	require.NoError(t, err)
	assert.Equal(t, cols, res.Columns)
	assert.Equal(t, 2, res.RowCount())
	require.Len(t, res.KeyErrors, 1)
	assert.Equal(t, 2021, res.KeyErrors[0].Key)
}

func TestSequentialUsesCallerConnection(t *testing.T) {
	provider := newFakeProvider()
	provider.on("SELECT * FROM sales.orders", rowsResult([]string{"id"}, table.Row{1}))

	engine := newTestEngine(t, provider)

	conn, err := provider.Open(context.Background())
	require.NoError(t, err)

	res, err := engine.RunSequential(context.Background(), Job{Schema: "sales", Table: "orders"}, conn)

	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount())

	// The caller-supplied connection stays the caller's to close.
	assert.Equal(t, 1, provider.openCount())
	assert.Equal(t, 0, provider.closeCount())

	require.NoError(t, conn.Close())
	assert.Equal(t, 1, provider.closeCount())
}

func TestSequentialRejectsEmptyTableName(t *testing.T) {
	engine := newTestEngine(t, newFakeProvider())

	_, err := engine.RunSequential(context.Background(), Job{}, nil)

	require.Error(t, err)
}

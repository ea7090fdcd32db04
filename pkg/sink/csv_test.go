package sink

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/pkg/table"
)

func sampleResult() *table.Result {
	return &table.Result{
		Columns: []string{"id", "name", "created"},
		Rows: []table.Row{
			{1, "alpha", time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)},
			{2, "with,comma", nil},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteCSV(sampleResult(), dir, "orders", Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "orders.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,created", lines[0])
	assert.Equal(t, "1,alpha,2021-06-01T12:00:00Z", lines[1])
	assert.Equal(t, `2,"with,comma",`, lines[2])
}

func TestWriteCSVCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	_, err := WriteCSV(sampleResult(), dir, "orders", Options{})
	require.NoError(t, err)

	// Idempotent on the second run.
	_, err = WriteCSV(sampleResult(), dir, "orders", Options{})
	require.NoError(t, err)
}

func TestWriteCSVCompressed(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteCSV(sampleResult(), dir, "orders", Options{Compress: true})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "orders.csv.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,name,created\n"))
}

func TestWriteCSVTimestampedName(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteCSV(sampleResult(), dir, "orders", Options{Timestamp: true})
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "orders_"))
	assert.True(t, strings.HasSuffix(base, ".csv"))
	assert.NotEqual(t, "orders.csv", base)
}

func TestWriteCSVCustomDelimiter(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteCSV(sampleResult(), dir, "orders", Options{Delimiter: ';'})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id;name;created\n"))
}

func TestWriteCSVRaggedRow(t *testing.T) {
	res := &table.Result{
		Columns: []string{"id", "name"},
		Rows:    []table.Row{{1}},
	}

	_, err := WriteCSV(res, t.TempDir(), "orders", Options{})
	require.Error(t, err)
}

// Package sink persists extraction results as delimited-text artifacts.
// One file per job: a UTF-8 CSV with a header row of column names, optionally
// gzip-compressed, named after the source table.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/quarryhq/quarry/pkg/qerrors"
	"github.com/quarryhq/quarry/pkg/table"
)

// Options controls artifact layout and naming.
type Options struct {
	// Delimiter between fields. Zero means comma.
	Delimiter rune

	// Compress gzips the artifact and appends a .gz suffix.
	Compress bool

	// Timestamp appends a run timestamp to the file name so repeated
	// runs do not clobber each other.
	Timestamp bool
}

// WriteCSV writes result to dir as <tableName>.csv (subject to Options
// naming) and returns the artifact path. The directory is created
// recursively and idempotently.
func WriteCSV(result *table.Result, dir, tableName string, opts Options) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", qerrors.Wrap(err, qerrors.ErrorTypeFile, "failed to create output directory")
	}

	name := tableName
	if opts.Timestamp {
		name = fmt.Sprintf("%s_%s", tableName, time.Now().Format("20060102T150405"))
	}
	name += ".csv"
	if opts.Compress {
		name += ".gz"
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", qerrors.Wrap(err, qerrors.ErrorTypeFile, "failed to create output file")
	}
	defer f.Close()

	var out io.Writer = f
	var gz *gzip.Writer
	if opts.Compress {
		gz = gzip.NewWriter(f)
		out = gz
	}

	if err := writeRows(out, result, opts.Delimiter); err != nil {
		return "", err
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", qerrors.Wrap(err, qerrors.ErrorTypeFile, "failed to flush compressed output")
		}
	}

	if err := f.Close(); err != nil {
		return "", qerrors.Wrap(err, qerrors.ErrorTypeFile, "failed to close output file")
	}

	return path, nil
}

// writeRows encodes the header row plus one line per source row.
func writeRows(out io.Writer, result *table.Result, delimiter rune) error {
	w := csv.NewWriter(out)
	if delimiter != 0 {
		w.Comma = delimiter
	}

	if err := w.Write(result.Columns); err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeFile, "failed to write header row")
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		if len(row) != len(result.Columns) {
			return qerrors.Newf(qerrors.ErrorTypeData, "row has %d values, expected %d", len(row), len(result.Columns))
		}
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return qerrors.Wrap(err, qerrors.ErrorTypeFile, "failed to write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeFile, "failed to flush csv writer")
	}
	return nil
}

// formatValue renders a scalar cell. NULLs become empty fields.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

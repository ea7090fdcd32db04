// Package table defines the tabular result model shared by the extraction
// engine, the source providers, and the persistence sink. A Result is a
// column-ordered row set plus the per-key errors recovered while building it,
// so "zero rows because the table is empty" and "zero rows because a query
// failed" stay distinguishable to the caller.
package table

import (
	"github.com/quarryhq/quarry/pkg/qerrors"
)

// Row is a single source row, positionally aligned with Result.Columns.
type Row []interface{}

// KeyError records a partition-key query that failed. The failure is data,
// not a propagated error: the owning shard or extractor carried on with its
// remaining keys.
type KeyError struct {
	Key int
	Err error
}

// Result is the row set produced for one extraction job or one shard of it.
type Result struct {
	// Columns holds the ordered column names shared by every row.
	Columns []string

	// Rows holds the extracted rows in worker-completion order. No
	// relationship to partition-key order is guaranteed.
	Rows []Row

	// KeyErrors lists the partition keys whose queries failed and were
	// recovered as zero rows.
	KeyErrors []KeyError

	// FailedShards counts shards that produced no rows because their
	// worker could not obtain a connection. A nonzero value means the
	// row set is a partial union.
	FailedShards int
}

// NewResult returns an empty result with no column set. The column set is
// adopted from the first appended row source.
func NewResult() *Result {
	return &Result{}
}

// RowCount returns the number of extracted rows.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Empty reports whether the result holds no rows.
func (r *Result) Empty() bool {
	return len(r.Rows) == 0
}

// Failed reports whether any key query or shard failed while building the
// result.
func (r *Result) Failed() bool {
	return len(r.KeyErrors) > 0 || r.FailedShards > 0
}

// Append concatenates other into r. The first nonempty column set wins; any
// later shard presenting a structurally different column set is a schema
// mismatch and fails loudly rather than being coerced or dropped.
func (r *Result) Append(other *Result) error {
	if other == nil {
		return nil
	}

	if len(other.Columns) > 0 {
		if len(r.Columns) == 0 {
			r.Columns = other.Columns
		} else if !sameColumns(r.Columns, other.Columns) {
			return qerrors.New(qerrors.ErrorTypeSchemaMismatch, "shard column sets differ").
				WithDetail("have", r.Columns).
				WithDetail("got", other.Columns)
		}
	}

	r.Rows = append(r.Rows, other.Rows...)
	r.KeyErrors = append(r.KeyErrors, other.KeyErrors...)
	r.FailedShards += other.FailedShards
	return nil
}

// Merge concatenates shard results into a single result. Merge is
// order-independent over the row multiset: permuting the inputs permutes
// the rows but never changes their multiset. Zero-row shards contribute
// nothing and are not an error.
func Merge(results ...*Result) (*Result, error) {
	merged := NewResult()
	for _, res := range results {
		if err := merged.Append(res); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// sameColumns reports whether two column sets are structurally identical.
// Every query of one job is a SELECT * against the same table, so identical
// means same names in the same order.
func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Package extract implements the partitioned table-extraction engine: shard
// planning, concurrent shard execution with per-key fault isolation, result
// aggregation, the single-connection sequential fallback, and the job
// orchestrator that sequences multiple tables through either path.
package extract

import (
	"fmt"

	"github.com/quarryhq/quarry/pkg/qerrors"
)

// Job identifies one logical table to pull. Jobs are built by the caller and
// treated as immutable once dispatched.
type Job struct {
	// Schema is the source schema the table lives in.
	Schema string `json:"schema" yaml:"schema" mapstructure:"schema"`

	// Table is the source table name. Required.
	Table string `json:"table" yaml:"table" mapstructure:"table"`

	// PartitionColumn is the scalar column the extraction is sharded
	// over (typically a year column). Empty means the table cannot be
	// partitioned and is pulled in one query.
	PartitionColumn string `json:"partition_column" yaml:"partition_column" mapstructure:"partition_column"`

	// Keys is an explicit partition key set. When empty the domain is
	// discovered from the source with SELECT DISTINCT.
	Keys []int `json:"keys" yaml:"keys" mapstructure:"keys"`

	// Sequential forces the single-connection path even when a
	// partition column is available.
	Sequential bool `json:"sequential" yaml:"sequential" mapstructure:"sequential"`
}

// Validate fails fast on jobs that must never reach a worker.
func (j Job) Validate() error {
	if j.Table == "" {
		return qerrors.New(qerrors.ErrorTypeConfig, "job has an empty table name")
	}
	return nil
}

// QualifiedName returns schema.table, or just the table when no schema is
// set.
func (j Job) QualifiedName() string {
	if j.Schema == "" {
		return j.Table
	}
	return j.Schema + "." + j.Table
}

// selectAll builds the unfiltered extraction query.
func (j Job) selectAll() string {
	return "SELECT * FROM " + j.QualifiedName()
}

// selectKey builds the extraction query for one partition key.
func (j Job) selectKey(key int) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = %d", j.QualifiedName(), j.PartitionColumn, key)
}

// selectDomain builds the partition-key discovery query.
func (j Job) selectDomain() string {
	return fmt.Sprintf("SELECT DISTINCT %s FROM %s", j.PartitionColumn, j.QualifiedName())
}

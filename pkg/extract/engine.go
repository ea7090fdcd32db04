package extract

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/quarryhq/quarry/pkg/logger"
	"github.com/quarryhq/quarry/pkg/metrics"
	"github.com/quarryhq/quarry/pkg/qerrors"
	"github.com/quarryhq/quarry/pkg/source"
	"github.com/quarryhq/quarry/pkg/table"
)

// Config controls the engine's worker sizing.
type Config struct {
	// WorkerCeiling caps the worker count regardless of hardware.
	// Values below 2 are a configuration error.
	WorkerCeiling int

	// Hardware is the hardware concurrency fed to the worker-count
	// selector. Zero means runtime.NumCPU().
	Hardware int
}

// DefaultConfig returns engine defaults suitable for interactive use.
func DefaultConfig() Config {
	return Config{
		WorkerCeiling: 8,
		Hardware:      runtime.NumCPU(),
	}
}

// Engine runs extraction jobs against one configured source provider. The
// engine holds no cross-job state: every job provisions its own workers and
// connections and releases them before returning.
type Engine struct {
	provider source.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewEngine creates an engine bound to a source provider.
func NewEngine(provider source.Provider, cfg Config) (*Engine, error) {
	if cfg.WorkerCeiling < 2 {
		return nil, qerrors.Newf(qerrors.ErrorTypeConfig, "worker ceiling must be at least 2, got %d", cfg.WorkerCeiling)
	}
	if cfg.Hardware <= 0 {
		cfg.Hardware = runtime.NumCPU()
	}

	return &Engine{
		provider: provider,
		cfg:      cfg,
		logger:   logger.Get().With(zap.String("component", "extract_engine")),
	}, nil
}

// RunPartitioned extracts job by fanning its partition-key domain out over a
// bounded pool of workers, each owning an exclusive connection. The domain
// is job.Keys when supplied, otherwise discovered from the source. An empty
// domain completes immediately with zero rows and spawns no worker.
//
// Per-key query failures are recovered inside their shard and surface as
// KeyErrors on the result; a worker that cannot connect abandons only its
// own shard and increments FailedShards. The only hard errors are job
// validation, domain discovery failure, and schema mismatch between shards.
func (e *Engine) RunPartitioned(ctx context.Context, job Job) (*table.Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if job.PartitionColumn == "" {
		return nil, qerrors.New(qerrors.ErrorTypeConfig, "partitioned extraction requires a partition column")
	}

	timer := prometheus.NewTimer(metrics.ExtractionDuration.WithLabelValues(job.QualifiedName()))
	defer timer.ObserveDuration()

	domain := normalizeKeys(job.Keys)
	if len(domain) == 0 {
		var err error
		domain, err = e.discoverDomain(ctx, job)
		if err != nil {
			return nil, err
		}
	}

	if len(domain) == 0 {
		e.logger.Info("empty partition domain, nothing to extract",
			zap.String("table", job.QualifiedName()))
		return table.NewResult(), nil
	}

	workers := WorkerCount(e.cfg.Hardware, e.cfg.WorkerCeiling)
	shards := Plan(domain, workers)

	e.logger.Info("dispatching shards",
		zap.String("table", job.QualifiedName()),
		zap.Int("keys", len(domain)),
		zap.Int("workers", workers),
		zap.Int("shards", len(shards)))

	// Fan out: one worker per nonempty shard, all dispatched at once.
	// Completion order is unconstrained; the merge below never depends
	// on it.
	results := make(chan *table.Result, len(shards))
	var wg sync.WaitGroup
	for i, keys := range shards {
		if len(keys) == 0 {
			continue
		}
		wg.Add(1)
		go func(idx int, keys []int) {
			defer wg.Done()
			results <- e.runShard(ctx, job, idx, keys)
		}(i, keys)
	}
	wg.Wait()
	close(results)

	shardResults := make([]*table.Result, 0, len(shards))
	for res := range results {
		shardResults = append(shardResults, res)
	}

	merged, err := table.Merge(shardResults...)
	if err != nil {
		return nil, err
	}

	metrics.RowsExtracted.WithLabelValues(job.QualifiedName()).Add(float64(merged.RowCount()))

	e.logger.Info("partitioned extraction complete",
		zap.String("table", job.QualifiedName()),
		zap.Int("rows", merged.RowCount()),
		zap.Int("failed_keys", len(merged.KeyErrors)),
		zap.Int("failed_shards", merged.FailedShards))

	return merged, nil
}

// runShard is the unit of concurrent work. It owns one connection for its
// lifetime, walks its key subset in order, and isolates each key's failure:
// a failed key is recorded and skipped, never aborting the shard. The
// connection is released exactly once on every exit path.
func (e *Engine) runShard(ctx context.Context, job Job, idx int, keys []int) *table.Result {
	log := e.logger.With(
		zap.String("table", job.QualifiedName()),
		zap.Int("shard", idx))

	acc := table.NewResult()

	conn, err := e.provider.Open(ctx)
	if err != nil {
		// Losing a shard silently would hide missing rows; count it
		// so the caller can see the partial union.
		log.Error("worker could not connect, abandoning shard",
			zap.Int("keys", len(keys)), zap.Error(err))
		metrics.ShardFailures.WithLabelValues(job.QualifiedName()).Inc()
		acc.FailedShards = 1
		return acc
	}
	metrics.ActiveWorkers.Inc()
	defer func() {
		metrics.ActiveWorkers.Dec()
		if cerr := conn.Close(); cerr != nil {
			log.Warn("failed to release shard connection", zap.Error(cerr))
		}
	}()

	for _, key := range keys {
		res, qerr := conn.Query(ctx, job.selectKey(key))
		if qerr != nil {
			log.Warn("key query failed, continuing with remaining keys",
				zap.Int("key", key), zap.Error(qerr))
			metrics.KeyFailures.WithLabelValues(job.QualifiedName()).Inc()
			acc.KeyErrors = append(acc.KeyErrors, table.KeyError{Key: key, Err: qerr})
			continue
		}

		if err := acc.Append(res); err != nil {
			// A mismatched column set inside one shard means the
			// source changed under us. Surface it as a key error
			// so the shard still completes its remaining keys.
			log.Warn("key result has mismatched columns",
				zap.Int("key", key), zap.Error(err))
			acc.KeyErrors = append(acc.KeyErrors, table.KeyError{Key: key, Err: err})
		}
	}

	log.Debug("shard complete",
		zap.Int("keys", len(keys)),
		zap.Int("rows", acc.RowCount()),
		zap.Int("failed_keys", len(acc.KeyErrors)))

	return acc
}

// discoverDomain queries the distinct partition-key values and returns them
// deduplicated and sorted ascending. Discovery uses its own short-lived
// connection.
func (e *Engine) discoverDomain(ctx context.Context, job Job) ([]int, error) {
	conn, err := e.provider.Open(ctx)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConnection, "failed to connect for domain discovery")
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			e.logger.Warn("failed to release discovery connection", zap.Error(cerr))
		}
	}()

	res, err := conn.Query(ctx, job.selectDomain())
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeQuery, "partition domain discovery failed")
	}

	seen := make(map[int]struct{}, len(res.Rows))
	domain := make([]int, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) == 0 {
			continue
		}
		key, ok := toInt(row[0])
		if !ok {
			return nil, qerrors.Newf(qerrors.ErrorTypeData,
				"partition column %s holds non-integer value %v", job.PartitionColumn, row[0])
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		domain = append(domain, key)
	}
	sort.Ints(domain)

	return domain, nil
}

// normalizeKeys dedupes and sorts a caller-supplied key set so an explicit
// domain has the same unique ascending shape as a discovered one. A
// duplicated key would otherwise be queried twice and duplicate its rows.
func normalizeKeys(keys []int) []int {
	if len(keys) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(keys))
	domain := make([]int, 0, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		domain = append(domain, key)
	}
	sort.Ints(domain)

	return domain
}

// toInt normalizes the scalar types drivers hand back for integer columns.
func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int8:
		return int(val), true
	case int16:
		return int(val), true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case uint32:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}

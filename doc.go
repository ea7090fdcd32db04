// Package quarry bulk-copies large relational tables by splitting each
// extraction into year-bounded shards and running them concurrently across a
// bounded pool of workers, each owning an exclusive connection to the source.
//
// The engine is a best-effort, fail-soft copy utility: a partition key whose
// query fails is recovered as zero rows, a worker that cannot connect
// abandons only its own shard, and both failure modes are surfaced on the
// result so partial unions are never silent.
//
// # Architecture
//
//   - pkg/source: connection providers (postgres, mysql, snowflake) behind a
//     single registry, selected by configuration.
//   - pkg/extract: the engine itself; shard planning, worker fan-out,
//     sequential fallback, and job orchestration.
//   - pkg/table: the shared row-set model and shard aggregation.
//   - pkg/sink: delimited-text persistence.
//
// # Quick Start
//
// Extract one partitioned table:
//
//	provider, _ := source.New("postgres", source.Params{DSN: dsn})
//	engine, _ := extract.NewEngine(provider, extract.DefaultConfig())
//
//	res, err := engine.RunPartitioned(ctx, extract.Job{
//	    Schema:          "sales",
//	    Table:           "orders",
//	    PartitionColumn: "order_year",
//	})
//
// Or run a whole job list through the orchestrator with CSV persistence:
//
//	orch := extract.NewOrchestrator(engine)
//	results, err := orch.RunJobs(ctx, jobs, extract.RunOptions{PersistDir: "./out"})
package quarry

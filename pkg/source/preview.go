package source

import (
	"context"
	"fmt"

	"github.com/quarryhq/quarry/pkg/table"
)

// Peek pulls up to limit rows from schema.table over a short-lived
// connection. It is a convenience for eyeballing a table before committing
// to a full extraction; the engine itself never calls it.
func Peek(ctx context.Context, provider Provider, schema, tableName string, limit int) (*table.Result, error) {
	conn, err := provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	sqlText := fmt.Sprintf("SELECT * FROM %s LIMIT %d", qualify(schema, tableName), limit)
	return conn.Query(ctx, sqlText)
}

// Sample pulls a vendor-specific random sample of about n rows. Falls back
// to a plain LIMIT for dialects without a sampling clause.
func Sample(ctx context.Context, provider Provider, schema, tableName string, n int) (*table.Result, error) {
	conn, err := provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var sqlText string
	switch provider.Name() {
	case "snowflake":
		sqlText = fmt.Sprintf("SELECT * FROM %s SAMPLE (%d ROWS)", qualify(schema, tableName), n)
	case "postgres":
		sqlText = fmt.Sprintf("SELECT * FROM %s TABLESAMPLE SYSTEM_ROWS(%d)", qualify(schema, tableName), n)
	default:
		sqlText = fmt.Sprintf("SELECT * FROM %s LIMIT %d", qualify(schema, tableName), n)
	}

	return conn.Query(ctx, sqlText)
}

func qualify(schema, tableName string) string {
	if schema == "" {
		return tableName
	}
	return schema + "." + tableName
}

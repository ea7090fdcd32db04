package source

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quarryhq/quarry/pkg/qerrors"
	"github.com/quarryhq/quarry/pkg/table"
)

func init() {
	_ = Register("postgres", NewPostgresProvider)
}

// PostgresProvider is the DSN-style provider backed by pgx. Each Open call
// yields one dedicated *pgx.Conn; there is no pooling, because the engine's
// workers own their connections exclusively.
type PostgresProvider struct {
	params Params
}

// NewPostgresProvider creates a postgres provider from connection parameters
func NewPostgresProvider(params Params) (Provider, error) {
	if params.DSN == "" {
		return nil, qerrors.New(qerrors.ErrorTypeConfig, "postgres provider requires a dsn")
	}
	return &PostgresProvider{params: params}, nil
}

// Name returns the registered provider name
func (p *PostgresProvider) Name() string { return "postgres" }

// Open establishes a new dedicated connection
func (p *PostgresProvider) Open(ctx context.Context) (Conn, error) {
	if p.params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.params.Timeout)
		defer cancel()
	}

	conn, err := pgx.Connect(ctx, p.params.DSN)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConnection, "failed to connect to postgres")
	}

	return &pgxConn{conn: conn}, nil
}

// pgxConn adapts a dedicated pgx connection to the Conn contract.
type pgxConn struct {
	conn *pgx.Conn
}

// Query executes sqlText and materializes the full row set
func (c *pgxConn) Query(ctx context.Context, sqlText string) (*table.Result, error) {
	rows, err := c.conn.Query(ctx, sqlText)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeQuery, "query failed")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	result := table.NewResult()
	result.Columns = columns

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeData, "failed to read row values")
		}
		result.Rows = append(result.Rows, table.Row(values))
	}

	if err := rows.Err(); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeQuery, "error iterating rows")
	}

	return result, nil
}

// Close releases the connection. Safe on a broken connection.
func (c *pgxConn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.conn.Close(ctx); err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeDisconnect, "failed to close postgres connection")
	}
	return nil
}

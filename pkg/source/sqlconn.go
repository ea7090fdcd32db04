package source

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quarryhq/quarry/pkg/qerrors"
	"github.com/quarryhq/quarry/pkg/table"
)

// sqlConn adapts one dedicated database/sql connection to the Conn contract.
// It owns both the checked-out *sql.Conn and the *sql.DB it came from, so
// Close tears down the whole stack and the connection is never returned to a
// shared pool behind the engine's back.
type sqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

// openSQLConn opens a driver connection, verifies it, and checks out a
// single dedicated connection from it.
func openSQLConn(ctx context.Context, driver, dsn string) (*sqlConn, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConnection, "failed to open "+driver+" source")
	}

	// One worker, one connection. The pool must never grow past it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConnection, "failed to establish "+driver+" connection")
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConnection, "failed to ping "+driver+" source")
	}

	return &sqlConn{db: db, conn: conn}, nil
}

// Query executes sqlText and materializes the full row set
func (c *sqlConn) Query(ctx context.Context, sqlText string) (*table.Result, error) {
	rows, err := c.conn.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeQuery, "query failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeData, "failed to read column names")
	}

	result := table.NewResult()
	result.Columns = columns

	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeData, "failed to scan row")
		}

		for i, v := range values {
			// Drivers hand back []byte for text-ish columns; keep
			// rows printable for the delimited sink.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, table.Row(values))
	}

	if err := rows.Err(); err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeQuery, "error iterating rows")
	}

	return result, nil
}

// Close releases the dedicated connection and its driver handle. Safe on a
// broken connection: both closes are attempted and failures come back as one
// tolerant Disconnect error.
func (c *sqlConn) Close() error {
	err := errors.Join(c.conn.Close(), c.db.Close())
	if err != nil {
		return qerrors.Wrap(err, qerrors.ErrorTypeDisconnect, "failed to close connection")
	}
	return nil
}

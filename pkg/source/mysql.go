package source

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/quarryhq/quarry/pkg/qerrors"
)

func init() {
	_ = Register("mysql", NewMySQLProvider)
}

// MySQLProvider is the credential-style provider for MySQL. It assembles the
// driver DSN from named parameters; callers that already hold a DSN can set
// Params.DSN and skip the credential fields.
type MySQLProvider struct {
	dsn string
}

// NewMySQLProvider creates a mysql provider from connection parameters
func NewMySQLProvider(params Params) (Provider, error) {
	dsn := params.DSN
	if dsn == "" {
		if params.Host == "" || params.User == "" || params.Database == "" {
			return nil, qerrors.New(qerrors.ErrorTypeConfig, "mysql provider requires host, user and database")
		}

		port := params.Port
		if port == 0 {
			port = 3306
		}

		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", params.Host, port)
		cfg.User = params.User
		cfg.Passwd = params.Password
		cfg.DBName = params.Database
		cfg.ParseTime = true
		if params.Timeout > 0 {
			cfg.Timeout = params.Timeout
		}
		dsn = cfg.FormatDSN()
	}

	return &MySQLProvider{dsn: dsn}, nil
}

// Name returns the registered provider name
func (p *MySQLProvider) Name() string { return "mysql" }

// Open establishes a new dedicated connection
func (p *MySQLProvider) Open(ctx context.Context) (Conn, error) {
	return openSQLConn(ctx, "mysql", p.dsn)
}

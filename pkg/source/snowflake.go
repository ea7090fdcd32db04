package source

import (
	"context"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/quarryhq/quarry/pkg/qerrors"
)

func init() {
	_ = Register("snowflake", NewSnowflakeProvider)
}

// SnowflakeProvider is the credential-style provider for Snowflake, the
// warehouse case the extraction tooling was built around.
type SnowflakeProvider struct {
	dsn string
}

// NewSnowflakeProvider creates a snowflake provider from connection parameters
func NewSnowflakeProvider(params Params) (Provider, error) {
	dsn := params.DSN
	if dsn == "" {
		if params.Account == "" || params.User == "" || params.Database == "" {
			return nil, qerrors.New(qerrors.ErrorTypeConfig, "snowflake provider requires account, user and database")
		}

		cfg := &sf.Config{
			Account:   params.Account,
			User:      params.User,
			Password:  params.Password,
			Database:  params.Database,
			Schema:    params.Schema,
			Warehouse: params.Warehouse,
			Role:      params.Role,
		}
		if params.Timeout > 0 {
			cfg.LoginTimeout = params.Timeout
		}

		var err error
		dsn, err = sf.DSN(cfg)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfig, "failed to build snowflake dsn")
		}
	}

	return &SnowflakeProvider{dsn: dsn}, nil
}

// Name returns the registered provider name
func (p *SnowflakeProvider) Name() string { return "snowflake" }

// Open establishes a new dedicated connection
func (p *SnowflakeProvider) Open(ctx context.Context) (Conn, error) {
	return openSQLConn(ctx, "snowflake", p.dsn)
}

package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/becmodel/internal/store"
)

// initStore opens the run ledger configured under store. Driver "none"
// returns a nil Store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "becmodel-runs.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		var poolCfg *store.PoolConfig
		if cfg.Store.MaxConns > 0 {
			poolCfg = &store.PoolConfig{MaxConns: cfg.Store.MaxConns}
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the run ledger.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil || st == nil {
		return st, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

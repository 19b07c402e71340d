package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/fairbill/fairbill/internal/common"
	"github.com/fairbill/fairbill/internal/config"
	"github.com/fairbill/fairbill/internal/rules"
	"github.com/fairbill/fairbill/internal/service"
	"github.com/fairbill/fairbill/internal/storage"
	"github.com/fairbill/fairbill/internal/verify"
)

// initStorage opens the tariff database and brings the schema current.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Could not open the tariff database at %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, common.NewUserError("Tariff database schema migration failed", err)
	}

	return store, nil
}

// newEngine wires the rule matcher and verification engine over the
// given store.
func newEngine(store service.Storage) *verify.Engine {
	matcher := rules.NewMatcher(store, store)
	return verify.NewEngine(matcher, verify.TolerancesFromConfig())
}

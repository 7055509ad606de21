// internal/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wte-api-server/config"
	"wte-api-server/internal/store"
)

const connectTimeout = 10 * time.Second

// Open connects to the configured backend, prepares its schema and returns
// the store.
func Open(ctx context.Context, cfg config.Config) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Database.DSN)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Database.DSN)
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// OpenSQLite opens a SQLite database. A single connection is used so that
// in-memory databases are shared by every query.
func OpenSQLite(ctx context.Context, dsn string) (*store.BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
	}
	return prepare(ctx, db)
}

// OpenPostgres opens a Postgres database from a postgres:// DSN.
func OpenPostgres(ctx context.Context, dsn string) (*store.BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return prepare(ctx, db)
}

func prepare(ctx context.Context, db *bun.DB) (*store.BunStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	s := store.NewBunStore(db)
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("Database connection opened (%s).", db.Dialect().Name())
	return s, nil
}

// OpenMongo connects to MongoDB and ensures the indexes exist.
func OpenMongo(ctx context.Context, cfg config.MongoConfig) (*store.MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongo: %w", err)
	}

	s := store.NewMongoStore(client, client.Database(cfg.DBName))
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	log.Printf("MongoDB connection opened (database %s).", cfg.DBName)
	return s, nil
}

package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shrek82/jorm/dialect"
	"github.com/shrek82/jorm/logger"
	"github.com/shrek82/jorm/model"
	"github.com/shrek82/jorm/pool"
)

// Options defines the configuration for the DB connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// WaitTime bounds each retry sweep a caller blocks for when the pool is
	// saturated and no lease is overdue. Defaults to 20s.
	WaitTime time.Duration
	// MaxLocalBadTolerance is the per-checkout-attempt ceiling on consecutive
	// bad connections, added to MaxIdleConns to form the failure budget.
	MaxLocalBadTolerance int
	// PingEnabled turns on the idle-connection liveness probe.
	PingEnabled bool
	// PingNotUsedFor is the minimum idle age before a probe is issued.
	PingNotUsedFor time.Duration
}

// DB is the main entry point for the ORM.
// It manages the database connection pool and provides methods to create queries.
type DB struct {
	pool    *pool.Pool
	dialect dialect.Dialect
	logger  logger.Logger
}

// Open initializes a new DB instance with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %s", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	factory := pool.NewSQLConnFactory(sqlDB)

	poolOpts := []pool.Option{
		pool.WithMaxActive(10),
		pool.WithMaxIdle(5),
	}
	pingEnabled := false
	pingNotUsedFor := time.Duration(0)
	if opts != nil {
		if opts.MaxOpenConns > 0 {
			poolOpts = append(poolOpts, pool.WithMaxActive(opts.MaxOpenConns))
		}
		if opts.MaxIdleConns > 0 {
			poolOpts = append(poolOpts, pool.WithMaxIdle(opts.MaxIdleConns))
		}
		if opts.ConnMaxLifetime > 0 {
			poolOpts = append(poolOpts, pool.WithMaxCheckoutTime(opts.ConnMaxLifetime))
		}
		if opts.WaitTime > 0 {
			poolOpts = append(poolOpts, pool.WithWaitTime(opts.WaitTime))
		}
		if opts.MaxLocalBadTolerance > 0 {
			poolOpts = append(poolOpts, pool.WithMaxLocalBadTolerance(opts.MaxLocalBadTolerance))
		}
		pingEnabled = opts.PingEnabled
		pingNotUsedFor = opts.PingNotUsedFor
	}
	poolOpts = append(poolOpts, pool.WithPing(pingEnabled, d.DefaultPingQuery(), pingNotUsedFor))

	p := pool.New(factory, driver, dsn, poolOpts...)

	lease, err := p.Checkout(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	_ = lease.Close()

	return &DB{
		pool:    p,
		dialect: d,
		logger:  logger.NewStdLogger(),
	}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.pool.Close()
}

// Stats returns a snapshot of the underlying connection pool's counters.
func (db *DB) Stats() pool.Stats {
	return db.pool.Stats()
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	db.logger = l
}

// newQuery builds a fresh Query against the given executor (db.pool for a
// plain DB call, a *Tx when running inside a transaction).
func (db *DB) newQuery(executor Executor) *Query {
	builder := NewBuilder(db.dialect)
	return NewQuery(db, executor, builder)
}

// Model starts a new query builder for the given model instance.
func (db *DB) Model(value any) *Query {
	return db.newQuery(db.pool).Model(value)
}

// Table starts a new query builder for the given table name.
func (db *DB) Table(name string) *Query {
	return db.newQuery(db.pool).Table(name)
}

// Raw starts a new query with a raw SQL statement.
func (db *DB) Raw(sql string, args ...any) *Query {
	return db.newQuery(db.pool).Raw(sql, args...)
}

// logSQL logs the SQL execution if a logger is set.
func (db *DB) logSQL(sql string, duration time.Duration, args ...any) {
	if db.logger != nil {
		db.logger.SQL(sql, duration, args...)
	}
}

// Exec executes a raw SQL statement without returning any rows.
func (db *DB) Exec(sql string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.pool.ExecContext(context.Background(), sql, args...)
	db.logSQL(sql, time.Since(start), args...)
	return res, err
}

// Transaction executes a function within a database transaction. The
// underlying lease is held by db.pool for the transaction's lifetime and
// returned exactly once, by whichever of Commit/Rollback runs first.
func (db *DB) Transaction(fn func(tx *Tx) error) error {
	start := time.Now()
	poolTx, err := db.pool.Begin(context.Background())
	db.logSQL("BEGIN", time.Since(start))
	if err != nil {
		return err
	}

	tx := &Tx{
		db:     db,
		poolTx: poolTx,
	}

	defer func() {
		if p := recover(); p != nil {
			start := time.Now()
			_ = poolTx.Rollback()
			db.logSQL("ROLLBACK", time.Since(start))
			panic(p)
		} else if err != nil {
			start := time.Now()
			_ = poolTx.Rollback()
			db.logSQL("ROLLBACK", time.Since(start))
		} else {
			start := time.Now()
			err = poolTx.Commit()
			db.logSQL("COMMIT", time.Since(start))
		}
	}()

	err = fn(tx)
	return err
}

// AutoMigrate creates the table for the given model if it doesn't exist.
func (db *DB) AutoMigrate(values ...any) error {
	for _, value := range values {
		m, err := model.GetModel(value)
		if err != nil {
			return err
		}

		// Check if table exists
		sqlStr, args := db.dialect.HasTableSQL(m.TableName)
		var count int
		err = db.pool.QueryRowContext(context.Background(), sqlStr, args...).Scan(&count)
		if err != nil {
			return err
		}

		if count == 0 {
			// Create table
			createSQL, createArgs := db.dialect.CreateTableSQL(m)
			start := time.Now()
			_, err = db.pool.ExecContext(context.Background(), createSQL, createArgs...)
			db.logSQL(createSQL, time.Since(start), createArgs...)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"busticket/internal/errs"
	"busticket/internal/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

const pingTimeout = 5 * time.Second

// Gateway owns the connection pool and hands out request-scoped sessions.
type Gateway struct {
	db      *gorm.DB
	dialect string
	log     *zap.Logger
}

// Open connects to the database named by url. Supported schemes are
// postgres://, postgresql://, mysql:// and sqlite://.
func Open(url string, log *zap.Logger) (*Gateway, error) {
	dialector, dialect, err := dialectorFor(url)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	if dialect == DialectSQLite {
		// single writer; also serializes concurrent transactions
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	log.Info("connected to database", zap.String("dialect", dialect))
	return &Gateway{db: db, dialect: dialect, log: log}, nil
}

func dialectorFor(url string) (gorm.Dialector, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), DialectPostgres, nil
	case strings.HasPrefix(url, "mysql://"):
		cfg, err := mysqldriver.ParseDSN(strings.TrimPrefix(url, "mysql://"))
		if err != nil {
			return nil, "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return mysql.Open(cfg.FormatDSN()), DialectMySQL, nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqlite.Open(sqliteDSN(strings.TrimPrefix(url, "sqlite://"))), DialectSQLite, nil
	default:
		return nil, "", errors.New("unsupported database url scheme (want postgres://, mysql:// or sqlite://)")
	}
}

// sqliteDSN turns on foreign key enforcement unless dsn configures it.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// Migrate creates missing tables, columns, indexes and foreign keys. It is
// idempotent and never drops anything.
func (g *Gateway) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	g.log.Info("database schema up to date")
	return nil
}

// Ping reports whether the database is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	g.log.Info("closing database connection pool")
	return sqlDB.Close()
}

func (g *Gateway) Dialect() string { return g.dialect }

// Acquire opens a session holding one transaction bound to ctx. Callers
// must defer Close; Commit makes the work durable.
func (g *Gateway) Acquire(ctx context.Context) (*Session, error) {
	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, errs.StorageUnavailable(tx.Error)
	}
	return &Session{tx: tx, dialect: g.dialect}, nil
}

// Session is a unit of work scoped to a single request.
type Session struct {
	tx      *gorm.DB
	dialect string
	done    bool
}

// DB returns the transaction handle. It must not outlive the session.
func (s *Session) DB() *gorm.DB { return s.tx }

// SupportsRowLocks reports whether SELECT ... FOR UPDATE is meaningful.
func (s *Session) SupportsRowLocks() bool { return s.dialect != DialectSQLite }

func (s *Session) Commit() error {
	if s.done {
		return errs.Internal(errors.New("session already closed"))
	}
	s.done = true
	if err := s.tx.Commit().Error; err != nil {
		return Classify(err)
	}
	return nil
}

// Close rolls back unless Commit already ran. Safe to call more than once.
func (s *Session) Close() {
	if s.done {
		return
	}
	s.done = true
	s.tx.Rollback()
}

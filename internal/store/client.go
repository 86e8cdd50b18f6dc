package store

import (
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client owns the shared database handles: a sqlx connection that
// golang-migrate runs over, and a gorm session on the same pool for the
// user gateway. It is constructed once at startup and closed on shutdown;
// there is no lazy global.
type Client struct {
	DB   *sqlx.DB
	Gorm *gorm.DB
}

// NewClient connects to PostgreSQL, applies pending migrations and opens a
// gorm session over the same connection pool.
func NewClient(databaseURL, migrationsURL string, logger *zap.SugaredLogger) (*Client, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := applyMigrations(migrationsURL, databaseURL, logger); err != nil {
		db.Close()
		return nil, err
	}

	gdb, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open gorm session: %w", err)
	}

	logger.Infow("connected to postgres")
	return &Client{DB: db, Gorm: gdb}, nil
}

func applyMigrations(migrationsURL, databaseURL string, logger *zap.SugaredLogger) error {
	m, err := migrate.New(migrationsURL, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logger.Infow("migrations up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	logger.Infow("migrations applied")
	return nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

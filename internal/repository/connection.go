package repository

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

func NewPostgresStore(cred *Credentials) (*SQLStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sqlx.Open(DriverPostgres, psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	log.Info().Str("host", cred.Host).Str("db", cred.DBName).Msg("connected to postgres")
	s := newSQLStore(db)
	s.migrationsPath = cred.MigrationsDirPath
	return s, nil
}

// NewSQLiteStore opens a file database. SQLite allows one writer at a time, so the
// pool is limited to a single connection and transactions queue behind it.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)
	log.Info().Str("path", dbPath).Msg("opened sqlite database")
	return newSQLStore(db), nil
}

// RunMigrations applies every pending migration found in migrationsPath, which must
// hold the scripts for the store's dialect. An empty path falls back to the
// Credentials.MigrationsDirPath the store was opened with.
func (s *SQLStore) RunMigrations(migrationsPath string) error {
	if migrationsPath == "" {
		migrationsPath = s.migrationsPath
	}
	if migrationsPath == "" {
		return errors.New("no migrations path configured")
	}
	var (
		driver database.Driver
		err    error
	)
	switch s.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{
			MigrationsTable: "bookcart_schema_migrations",
		})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported driver %q", s.driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		s.driver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

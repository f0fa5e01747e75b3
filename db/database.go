package db

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options selects the database backend
type Options struct {
	Path           string // local sqlite file
	TursoURL       string // remote libSQL database, takes precedence over Path
	TursoAuthToken string
	Environment    string
}

// Initialize sets up the database connection. A configured Turso URL opens a
// remote libSQL database, otherwise a local sqlite file is used with WAL mode.
func Initialize(opts Options) error {
	var err error

	// Determine log level based on environment
	logLevel := logger.Info
	if opts.Environment == "production" {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	if opts.TursoURL != "" {
		DB, err = openTurso(opts.TursoURL, opts.TursoAuthToken, gormCfg)
		if err != nil {
			return err
		}
		log.Println("Database connection established (Turso/libSQL)")
		return nil
	}

	DB, err = gorm.Open(sqlite.Open(SQLiteDSN(opts.Path)), gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established (WAL mode enabled)")
	return nil
}

// SQLiteDSN enables WAL mode for a local database file. Transactions take
// the write lock at BEGIN, so read-then-write units of work serialize
// instead of failing with SQLITE_BUSY on lock upgrade.
func SQLiteDSN(path string) string {
	return path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

func openTurso(url, authToken string, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := url
	if authToken != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		dsn = url + sep + "authToken=" + authToken
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	gdb, err := gorm.Open(sqlite.New(sqlite.Config{Conn: conn}), gormCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to Turso database: %w", err)
	}
	return gdb, nil
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(models...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// WithTransaction runs fn inside a transaction on conn. Any error returned by
// fn, or a panic, rolls the whole unit of work back.
func WithTransaction(conn *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := conn.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			log.Printf("[WARNING] Rollback failed: %v", rbErr)
		}
		return err
	}

	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}

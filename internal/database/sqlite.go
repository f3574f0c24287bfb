package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite"

	"github.com/estate-protocol/tokenization-node/internal/utils"
)

// SQLiteManager handles all database operations
type SQLiteManager struct {
	dir    string
	cm     *utils.ConfigManager
	db     *sql.DB
	logger *utils.LogsManager
}

// NewSQLiteManager opens the node database and ensures the schema exists.
func NewSQLiteManager(cm *utils.ConfigManager, logger *utils.LogsManager) (*SQLiteManager, error) {
	paths := utils.GetAppPaths("")
	sqlm := &SQLiteManager{
		dir:    paths.DataDir,
		cm:     cm,
		logger: logger,
	}

	db, err := sqlm.createConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %v", err)
	}
	sqlm.db = db

	if err := sqlm.InitSettlementsTable(); err != nil {
		return nil, fmt.Errorf("failed to init settlements table: %w", err)
	}

	return sqlm, nil
}

// NewSQLiteManagerWithDB wraps an existing connection and ensures the schema
// exists. Used by tests and tooling that manage the connection themselves.
func NewSQLiteManagerWithDB(db *sql.DB, cm *utils.ConfigManager, logger *utils.LogsManager) (*SQLiteManager, error) {
	sqlm := &SQLiteManager{
		cm:     cm,
		db:     db,
		logger: logger,
	}

	if err := sqlm.InitSettlementsTable(); err != nil {
		return nil, fmt.Errorf("failed to init settlements table: %w", err)
	}

	return sqlm, nil
}

// createConnection creates and configures the database connection
func (sqlm *SQLiteManager) createConnection() (*sql.DB, error) {
	dbFileName := sqlm.cm.GetConfigWithDefault("database_file", "./tokenization-node.db")
	switch runtime.GOOS {
	case "windows":
		dbFileName = filepath.FromSlash(dbFileName)
	default:
		dbFileName = filepath.ToSlash(dbFileName)
	}

	path := filepath.Join(sqlm.dir, dbFileName)

	// WAL + busy timeout for concurrent request handlers
	db, err := sql.Open("sqlite",
		fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1&_synchronous=NORMAL", path))
	if err != nil {
		sqlm.logger.Error(fmt.Sprintf("Can not create database connection. (%s)", err.Error()), "database")
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		sqlm.logger.Warn(fmt.Sprintf("Failed to enable WAL mode: %s", err.Error()), "database")
	}

	return db, nil
}

// GetDB returns the database connection for direct access if needed
func (sqlm *SQLiteManager) GetDB() *sql.DB {
	return sqlm.db
}

// Close closes the database connection
func (sqlm *SQLiteManager) Close() error {
	if sqlm.db != nil {
		return sqlm.db.Close()
	}
	return nil
}

package db

import (
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to MySQL when a DSN is configured, otherwise falls back to
// SQLite. The returned handle is passed explicitly to every component that
// needs it.
func Open(mysqlDSN, sqliteFile string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
	if mysqlDSN != "" {
		return gorm.Open(mysql.Open(mysqlDSN), cfg)
	}
	if sqliteFile != "" {
		return gorm.Open(sqlite.Open(sqliteFile), cfg)
	}
	return nil, errors.New("db: neither MYSQL_DSN nor SQLITE_FILE is configured")
}

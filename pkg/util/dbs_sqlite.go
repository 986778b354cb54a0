package util

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens a local sqlite file; empty dsn means an in-memory database.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return createDatabaseInstance(&gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}, dsn)
}

func createDatabaseInstance(cfg *gorm.Config, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "file::memory:"
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}

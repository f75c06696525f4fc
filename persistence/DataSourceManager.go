package persistence

import (
	"errors"
	"os"
	"strings"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/sirupsen/logrus"
	otgorm "github.com/smacker/opentracing-gorm"
)

var ActiveDataSourceManager *DataSourceManager

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

type DataSourceManager struct {
	gormDB *gorm.DB

	DatabaseConfig *DatabaseConfig
}

// ParseDatabaseConfigFromEnv DATABASE_DRIVER=sqlite3 DATABASE_URL=fixflow.db
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "sqlite3"
	}
	if driver != "mysql" && driver != "sqlite3" {
		return nil, errors.New("unsupported database driver: " + driver)
	}
	args := os.ExpandEnv(os.Getenv("DATABASE_URL"))
	if args == "" {
		if driver == "sqlite3" {
			args = "fixflow.db"
		} else {
			return nil, errors.New("DATABASE_URL is required for driver " + driver)
		}
	}
	return &DatabaseConfig{DriverType: driver, DriverArgs: args}, nil
}

// PrepareMysqlDatabase create the database when absent, mysql driver only
func PrepareMysqlDatabase(driverArgs string) error {
	idx := strings.Index(driverArgs, "/")
	if idx < 0 {
		return errors.New("invalid mysql driver args")
	}
	databaseName := driverArgs[idx+1:]
	if paramIdx := strings.Index(databaseName, "?"); paramIdx >= 0 {
		databaseName = databaseName[0:paramIdx]
	}

	db, err := gorm.Open("mysql", driverArgs[0:idx+1]+"?charset=utf8mb4")
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Exec("CREATE DATABASE IF NOT EXISTS " + databaseName + " CHARACTER SET utf8mb4").Error
}

func (m *DataSourceManager) Start() error {
	db, err := connect(m.DatabaseConfig)
	if err != nil {
		return err
	}
	m.gormDB = db
	if os.Getenv("GIN_MODE") != "release" {
		m.gormDB.LogMode(true)
	}
	if m.DatabaseConfig.DriverType == "sqlite3" {
		// single writer, the sqlite file does not tolerate concurrent write connections
		m.gormDB.DB().SetMaxOpenConns(1)
	}
	otgorm.AddGormCallbacks(m.gormDB)
	return nil
}

func (m *DataSourceManager) Stop() {
	if m.gormDB != nil {
		if err := m.gormDB.Close(); err != nil {
			logrus.Warnf("failed to close DB: %v", err)
		}
		m.gormDB = nil
	}
}

func (m *DataSourceManager) GormDB() *gorm.DB {
	if m.gormDB != nil {
		return m.gormDB.New()
	}
	return nil
}

func connect(config *DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(config.DriverType, config.DriverArgs)
	if err != nil {
		return nil, err
	}
	err = db.DB().Ping()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// IsDuplicateEntryError unique constraint violations, mysql 1062 and sqlite
func IsDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

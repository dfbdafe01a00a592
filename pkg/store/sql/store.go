// Package sql implements store.Store on gorm. The dialect is picked from
// the store URL scheme; the schema is auto-migrated on startup.
package sql

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/modelguard/modelguard/pkg/store"
	"github.com/modelguard/modelguard/pkg/store/sql/model"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// NewStore opens the database named by storeURL and migrates the schema.
// Supported schemes: postgres, mysql, sqlserver and sqlite (three slashes
// for a relative file, four for an absolute path).
func NewStore(log *logrus.Logger, storeURL string) (*Store, error) {
	dialector, err := dialectorFor(storeURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewLoggerAdaptor(log, LoggerAdaptorConfig{
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", storeURL, err)
	}

	if err := db.AutoMigrate(
		&model.MonitoringJob{},
		&model.JobRun{},
		&model.Alert{},
		&model.Baseline{},
		&model.RetrainJob{},
		&model.ABTest{},
		&model.DriftReport{},
		&model.BiasReport{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

func dialectorFor(storeURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(storeURL, "postgres://"), strings.HasPrefix(storeURL, "postgresql://"):
		return postgres.Open(storeURL), nil
	case strings.HasPrefix(storeURL, "mysql://"):
		return mysql.Open(strings.TrimPrefix(storeURL, "mysql://")), nil
	case strings.HasPrefix(storeURL, "sqlserver://"):
		return sqlserver.Open(storeURL), nil
	case strings.HasPrefix(storeURL, "sqlite://"):
		path := strings.TrimPrefix(storeURL, "sqlite://")
		path = strings.TrimPrefix(path, "/")
		return gormlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported store URL %q", storeURL)
	}
}

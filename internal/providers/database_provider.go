package providers

import (
	"fmt"
	"publishd/internal/models"
	"publishd/internal/structures"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 500 * time.Millisecond

// gormLogWriter routes gorm's own logging into the archive log category.
type gormLogWriter struct {
	logger Logger
}

func (w gormLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Debugf(TypeArchive, format, args...)
}

// NewDatabaseProvider opens the archive database and migrates the archive
// tables. The CMS source tables are migrated only when configured, which is
// meant for local sqlite setups.
func NewDatabaseProvider(conf *structures.Config, logger Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch conf.Database.Driver {
	case "postgres":
		dialector = postgres.Open(conf.Database.DSN)
	case "sqlite":
		dialector = sqlite.Open(conf.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Database.Driver)
	}

	slow := conf.Database.SlowQuery
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	level := gormlogger.Warn
	if conf.Debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(gormLogWriter{logger: logger}, gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", conf.Database.Driver, err)
	}

	if conf.Database.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := MigrateSchema(db, conf.Database.MigrateSources); err != nil {
		return nil, err
	}

	logger.Infof(TypeApp, "Database ready: driver=%s", conf.Database.Driver)
	return db, nil
}

// MigrateSchema creates the archive tables, and the source tables when withSources is set.
func MigrateSchema(db *gorm.DB, withSources bool) error {
	if err := db.AutoMigrate(&models.ArchiveVersion{}, &models.LatestArchiveVersion{}); err != nil {
		return fmt.Errorf("migrate archive tables: %w", err)
	}
	if !withSources {
		return nil
	}
	if err := db.AutoMigrate(&models.Chart{}, &models.MultiDimDataPage{}, &models.Explorer{}, &models.Variable{}); err != nil {
		return fmt.Errorf("migrate source tables: %w", err)
	}
	return nil
}

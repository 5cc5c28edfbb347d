package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/config"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
)

// DSN builds the driver connection string. DB_DSN, when set, is used as is.
func DSN(c config.DBConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "mysql":
		// verify-full -> tls=true, require -> tls=skip-verify, disable -> tls=false
		tls := "true"
		switch c.SSLMode {
		case "require":
			tls = "skip-verify"
		case "disable":
			tls = "false"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&tls=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, tls)
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	}
}

func dialector(c config.DBConfig) gorm.Dialector {
	if c.Driver == "mysql" {
		return mysql.Open(DSN(c))
	}
	return postgres.Open(DSN(c))
}

// NewDB opens the relational store and checks it answers.
func NewDB(c config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(c), &gorm.Config{
		Logger: gormlogger.New(logger.L(), gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	logger.L().WithField("driver", c.Driver).Info("Connected to database")
	return db, nil
}

// Migrate creates or updates the opportunities, feedback and comments tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Opportunity{}, &domain.Feedback{}, &domain.Comment{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.L().Info("Migrations applied")
	return nil
}

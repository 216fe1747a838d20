package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

func GetDB() *gorm.DB {
	return DB
}

// SetupDatabase connects the configured driver and migrates the schema.
func SetupDatabase() {
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = Open()
		if err == nil {
			if err = Migrate(DB); err != nil {
				panic(err)
			}
			return
		}

		log.Errorf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// Open opens the database selected by DB_DRIVER (mysql or sqlite).
func Open() (*gorm.DB, error) {
	switch env.GetEnv("DB_DRIVER", "mysql") {
	case "sqlite":
		return OpenSQLite(env.GetEnv("DB_SQLITE_PATH", "affiliatefox.db"))
	case "mysql":
		return OpenMySQL()
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", env.GetEnv("DB_DRIVER", ""))
	}
}

func OpenMySQL() (*gorm.DB, error) {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	return gorm.Open(mysql.New(mysql.Config{
		DSN:                       dsn,
		DefaultStringSize:         256,
		DisableDatetimePrecision:  true,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	}), gormConfig())
}

// OpenSQLite opens a pure-Go SQLite database. A single connection keeps
// in-memory databases and transactions on the same handle.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig() *gorm.Config {
	cfg := &gorm.Config{TranslateError: true}
	if !env.IsDev() {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}
	return cfg
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Affiliate{},
		&models.AffiliateClick{},
		&models.AffiliateConversion{},
		&models.AffiliatePayout{},
		&models.License{},
		&models.WebhookEvent{},
		&models.EmailQueueItem{},
		&models.CreditAccount{},
		&models.CreditTransaction{},
	)
}

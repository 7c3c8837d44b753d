package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/types"
	"github.com/felixvaughn/themachine-backend/internal/utils"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresService connects to the configured Postgres instance.
// Connection details come from POSTGRES_* env vars.
func NewPostgresService(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "PostgresService")

	host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	port := utils.GetEnv("POSTGRES_PORT", "5432", log)
	user := utils.GetEnv("POSTGRES_USER", "postgres", log)
	password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	name := utils.GetEnv("POSTGRES_NAME", "themachine", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Service{db: gdb, log: serviceLog}, nil
}

// NewSQLiteService opens an in-memory database. This backs demo mode:
// the repo layer is identical to live mode, only the driver changes.
func NewSQLiteService(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "SQLiteService")
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Video{},
		&types.SessionSlot{},
		&types.ScrollEvent{},
		&types.TextCard{},
		&types.SessionSummary{},
		&types.FieldReport{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

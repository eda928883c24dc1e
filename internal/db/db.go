package db

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"greenbox-backend/config"
	"greenbox-backend/internal/model"
	"greenbox-backend/internal/parse"
)

// Init initializes the database connection, runs migrations and provisions
// containers on first start.
func Init(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if err := SeedContainers(db, cfg.Locations); err != nil {
		return nil, fmt.Errorf("container provisioning failed: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate applies the schema for all engine entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Container{},
		&model.Checkout{},
		&model.PushSubscription{},
	)
}

// SeedContainers provisions the configured number of containers per
// location when the container table is empty. A stand-in for the admin
// provisioning tooling, which lives outside this service.
func SeedContainers(db *gorm.DB, locations []config.Location) error {
	var count int64
	if err := db.Model(&model.Container{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	year := time.Now().Year()
	seq := 1
	var containers []model.Container
	for _, loc := range locations {
		for i := 0; i < loc.SeedContainers; i++ {
			containers = append(containers, model.Container{
				Code:            parse.FormatCode(year, seq),
				Tag:             uuid.NewString(),
				Status:          model.ContainerAvailable,
				CurrentLocation: loc.ID,
			})
			seq++
		}
	}
	if len(containers) == 0 {
		return nil
	}

	log.Printf("Provisioning %d containers...", len(containers))
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&containers).Error
	})
}

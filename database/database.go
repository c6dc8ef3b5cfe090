package database

import (
	"tontine-app/internal/domain/carnets"
	"tontine-app/internal/domain/users"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(dsn string, log *zap.Logger) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// unique violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	DB = db

	// gen_random_uuid() for ids created in SQL
	if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Fatal("failed to enable pgcrypto extension", zap.Error(err))
	}

	if err := DB.AutoMigrate(
		&users.User{},
		&carnets.Carnet{},
		&carnets.Transaction{},
	); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	log.Info("connected and migrated")
}

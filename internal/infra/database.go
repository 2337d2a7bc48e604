package infra

import (
	"fmt"

	"cortecaja/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date. TranslateError is on so unique-index violations surface
// as gorm.ErrDuplicatedKey (the corte repository maps those to ConflictError).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate plus the DDL AutoMigrate cannot express. Shared
// with the sqlite-backed repository tests, so every statement must be valid in
// both dialects and idempotent.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Negocio{},
		&model.TipoPago{},
		&model.Venta{},
		&model.DetalleVenta{},
		&model.CorteCaja{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}

	// One open corte per negocio, enforced by the database rather than by
	// caller discipline. Partial unique indexes work on both postgres and sqlite.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_cortes_caja_abierto
		 ON cortes_caja (negocio_id) WHERE estado = 'abierto'`,
	).Error; err != nil {
		return fmt.Errorf("partial index: %w", err)
	}
	return nil
}

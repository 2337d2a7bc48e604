package repository

import (
	"context"
	"time"

	"cortecaja/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VentaRepository is the read-only view over the sales ledger. No method here
// ever writes a venta — sales originate in the external recording subsystem.
type VentaRepository interface {
	// QueryVentas returns the paid ventas of a negocio whose fecha_venta falls
	// inside [desde, hasta] (both inclusive), ordered by fecha_venta then id so
	// that repeated aggregations over an unchanged ledger sum in the same order.
	QueryVentas(ctx context.Context, negocioID uuid.UUID, desde, hasta time.Time) ([]model.Venta, error)
	// List backs GET /v1/ventas — same filter, newest first, capped.
	List(ctx context.Context, negocioID uuid.UUID, desde, hasta time.Time, limit int) ([]model.Venta, int64, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) QueryVentas(ctx context.Context, negocioID uuid.UUID, desde, hasta time.Time) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND estado = ? AND fecha_venta >= ? AND fecha_venta <= ?",
			negocioID, model.VentaPagada, desde, hasta).
		Preload("TipoPago").
		Preload("Detalles").
		Order("fecha_venta ASC, id ASC").
		Find(&ventas).Error
	return ventas, err
}

func (r *ventaRepo) List(ctx context.Context, negocioID uuid.UUID, desde, hasta time.Time, limit int) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("negocio_id = ? AND estado = ? AND fecha_venta >= ? AND fecha_venta <= ?",
			negocioID, model.VentaPagada, desde, hasta)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("TipoPago").
		Order("fecha_venta DESC, id DESC").
		Limit(limit).
		Find(&ventas).Error
	return ventas, total, err
}

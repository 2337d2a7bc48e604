package repository

import (
	"context"
	"errors"
	"time"

	"cortecaja/internal/apierror"
	"cortecaja/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CorteRepository is the durable, append-mostly store of cash sessions.
// It owns the one-open-corte-per-negocio invariant: Crear relies on the
// partial unique index, and Cerrar is a guarded single-row update, so the
// invariant holds regardless of caller discipline.
type CorteRepository interface {
	Crear(ctx context.Context, c *model.CorteCaja) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CorteCaja, error)
	FindAbierto(ctx context.Context, negocioID uuid.UUID) (*model.CorteCaja, error)
	Cerrar(ctx context.Context, c *model.CorteCaja) error
	UltimoCerrado(ctx context.Context, negocioID uuid.UUID) (*model.CorteCaja, error)
	Historial(ctx context.Context, negocioID uuid.UUID, limit int) ([]model.CorteCaja, error)
}

type corteRepo struct{ db *gorm.DB }

func NewCorteRepository(db *gorm.DB) CorteRepository { return &corteRepo{db: db} }

func (r *corteRepo) Crear(ctx context.Context, c *model.CorteCaja) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.AbiertoEn.IsZero() {
		c.AbiertoEn = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Partial unique index uni_cortes_caja_abierto fired: a corte is
		// already open for this negocio.
		return apierror.Conflict("Ya existe un corte de caja abierto para este negocio")
	}
	return err
}

func (r *corteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CorteCaja, error) {
	var c model.CorteCaja
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("Corte de caja no encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *corteRepo) FindAbierto(ctx context.Context, negocioID uuid.UUID) (*model.CorteCaja, error) {
	var c model.CorteCaja
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND estado = ?", negocioID, model.CorteAbierto).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("No hay un corte de caja abierto para este negocio")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Cerrar transitions abierto → cerrado and freezes the close snapshot in one
// guarded UPDATE. Zero rows affected means someone else closed it first — a
// second close is a caller error (it would re-declare a physical count that
// already happened), so it surfaces as conflict, never as a silent no-op.
func (r *corteRepo) Cerrar(ctx context.Context, c *model.CorteCaja) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CorteCaja{}).
			Where("id = ? AND estado = ?", c.ID, model.CorteAbierto).
			Select("Estado", "UsuarioID", "MontoDeclarado", "EfectivoEsperado",
				"Diferencia", "FechaInicio", "FechaFin", "VentasTotales",
				"MontoVentas", "Desglose", "CerradoEn").
			Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierror.Conflict("El corte de caja ya fue cerrado")
		}
		return nil
	})
}

func (r *corteRepo) UltimoCerrado(ctx context.Context, negocioID uuid.UUID) (*model.CorteCaja, error) {
	var c model.CorteCaja
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND estado = ?", negocioID, model.CorteCerrado).
		Order("cerrado_en DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *corteRepo) Historial(ctx context.Context, negocioID uuid.UUID, limit int) ([]model.CorteCaja, error) {
	var cortes []model.CorteCaja
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND estado = ?", negocioID, model.CorteCerrado).
		Order("cerrado_en DESC").
		Limit(limit).
		Find(&cortes).Error
	return cortes, err
}

package repository

import (
	"context"
	"errors"

	"cortecaja/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NegocioRepository answers existence checks against the business directory.
// Tenant management is owned elsewhere; this engine never creates negocios.
type NegocioRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type negocioRepo struct{ db *gorm.DB }

func NewNegocioRepository(db *gorm.DB) NegocioRepository { return &negocioRepo{db: db} }

func (r *negocioRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n model.Negocio
	err := r.db.WithContext(ctx).Select("id").First(&n, "id = ? AND activo", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

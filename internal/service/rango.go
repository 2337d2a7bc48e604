package service

import (
	"context"
	"time"

	"cortecaja/internal/model"
	"cortecaja/internal/repository"

	"github.com/google/uuid"
)

// Rango is the half-day or since-last-close window a corte aggregates over.
// Both ends are inclusive.
type Rango struct {
	Desde time.Time
	Hasta time.Time
}

// RangoResolver computes the aggregation window for a corte. Pure given the
// persisted cortes and the wall clock passed in — it never writes.
type RangoResolver struct {
	cortes repository.CorteRepository
}

func NewRangoResolver(cortes repository.CorteRepository) *RangoResolver {
	return &RangoResolver{cortes: cortes}
}

// Resolver returns the window for the given coverage:
//   - dia_completo: from UTC midnight of now's calendar day until now.
//   - desde_ultimo_corte: from the previous corte's cerrado_en until now;
//     without a previous corte it falls back to midnight (safe default).
func (r *RangoResolver) Resolver(ctx context.Context, cobertura string, negocioID uuid.UUID, now time.Time) (Rango, error) {
	now = now.UTC()
	inicioDia := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if cobertura == model.CoberturaDesdeUltimoCorte {
		ultimo, err := r.cortes.UltimoCerrado(ctx, negocioID)
		if err != nil {
			return Rango{}, err
		}
		if ultimo != nil && ultimo.CerradoEn != nil {
			return Rango{Desde: ultimo.CerradoEn.UTC(), Hasta: now}, nil
		}
	}
	return Rango{Desde: inicioDia, Hasta: now}, nil
}

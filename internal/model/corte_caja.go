package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Corte coverage — recorded when the corte is opened, never recomputed later.
const (
	CoberturaDiaCompleto      = "dia_completo"
	CoberturaDesdeUltimoCorte = "desde_ultimo_corte"
)

// Corte states.
const (
	CorteAbierto = "abierto"
	CorteCerrado = "cerrado"
)

// CorteCaja is one shift's cash reconciliation record ("corte de caja").
// Estado: "abierto" | "cerrado". A closed corte is immutable: every numeric
// field is a snapshot taken from a single ledger read at close time, and is
// never recomputed even if the underlying sales are amended afterwards.
// At most one corte per negocio may be abierto at any instant — enforced by a
// partial unique index on (negocio_id) WHERE estado = 'abierto'.
type CorteCaja struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	NegocioID uuid.UUID  `gorm:"type:uuid;not null;index"`
	UsuarioID *uuid.UUID `gorm:"type:uuid"`
	Estado    string     `gorm:"type:varchar(20);not null;default:'abierto'"`
	Cobertura string     `gorm:"type:varchar(30);not null"`

	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Filled exactly once, at close time, from one atomic ledger read.
	MontoDeclarado   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	EfectivoEsperado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia       *decimal.Decimal `gorm:"type:decimal(12,2)"`

	// Resolved aggregation window, frozen at close.
	FechaInicio *time.Time
	FechaFin    *time.Time

	VentasTotales *int
	MontoVentas   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Desglose      []DesglosePago   `gorm:"serializer:json"`

	AbiertoEn time.Time
	CerradoEn *time.Time `gorm:"index"`
}

func (CorteCaja) TableName() string { return "cortes_caja" }

// DesglosePago is one frozen per-payment-method line of the close snapshot.
// Efectivo marks methods that live in the physical drawer; the flag is stored
// with the snapshot so a later re-classification of the method cannot change
// a historical corte.
type DesglosePago struct {
	TipoPagoID string          `json:"id_tipo_pago"`
	Etiqueta   string          `json:"etiqueta"`
	Efectivo   bool            `json:"efectivo"`
	Total      decimal.Decimal `json:"total"`
	Tickets    int             `json:"tickets"`
}

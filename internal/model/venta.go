package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta estados. Only "pagada" counts toward a corte; abiertas (carts) and
// canceladas are excluded from every aggregation.
const (
	VentaPagada    = "pagada"
	VentaAbierta   = "abierta"
	VentaCancelada = "cancelada"
)

// Venta is a row of the sales ledger. The ledger is owned by the external
// sales-recording subsystem — this engine only reads it, and never under a
// write lock.
type Venta struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	NegocioID uuid.UUID `gorm:"type:uuid;not null;index"`
	Estado    string    `gorm:"type:varchar(20);not null;index"`
	// FechaVenta is set when the sale is paid; null while the cart is open.
	FechaVenta *time.Time `gorm:"index"`
	// Total may be absent/zero on older rows; callers fall back to the line items.
	Total      decimal.Decimal `gorm:"type:decimal(12,2)"`
	TipoPagoID *uuid.UUID      `gorm:"type:uuid"`

	TipoPago *TipoPago      `gorm:"foreignKey:TipoPagoID"`
	Detalles []DetalleVenta `gorm:"foreignKey:VentaID"`

	CreatedAt time.Time
}

func (Venta) TableName() string { return "ventas" }

// DetalleVenta is one line item of a venta.
type DetalleVenta struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (DetalleVenta) TableName() string { return "detalle_ventas" }

// TipoPago is a payment method. Efectivo=true means the money physically
// enters the drawer and therefore participates in the expected-cash figure.
type TipoPago struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Tipo     string    `gorm:"type:varchar(40);not null"`
	Efectivo bool      `gorm:"not null;default:false"`
}

func (TipoPago) TableName() string { return "tipos_pago" }

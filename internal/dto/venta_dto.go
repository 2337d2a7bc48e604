package dto

import "github.com/shopspring/decimal"

// VentaFilter is bound from the query string of GET /v1/ventas.
// Desde/Hasta are RFC 3339; both empty means the current calendar day.
type VentaFilter struct {
	NegocioID string `form:"id_negocio" validate:"required,uuid"`
	Desde     string `form:"desde"  validate:"omitempty"`
	Hasta     string `form:"hasta"  validate:"omitempty"`
	Limite    int    `form:"limite,default=50" validate:"min=1,max=200"`
}

type VentaListItem struct {
	ID         string          `json:"id"`
	Fecha      string          `json:"fecha"`
	Total      decimal.Decimal `json:"total"`
	MetodoPago string          `json:"metodo_pago"`
}

type VentaListResponse struct {
	Data  []VentaListItem `json:"data"`
	Total int64           `json:"total"`
}

package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCorteRequest struct {
	NegocioID string `json:"id_negocio" validate:"required,uuid"`
	// MontoInicial defaults to the previous corte's monto_declarado (carry-over)
	// when omitted, or zero when the negocio has no closed cortes yet.
	MontoInicial *decimal.Decimal `json:"monto_inicial" validate:"omitempty,min=0"`
	// TodoElDia=true aggregates the whole calendar day; otherwise the corte
	// covers everything since the last close.
	TodoElDia *bool `json:"todo_el_dia"`
}

// ResumenQuery is bound from the query string of GET /v1/caja/resumen.
type ResumenQuery struct {
	NegocioID        string `form:"id_negocio" validate:"required,uuid"`
	IncluirRecientes bool   `form:"incluir_recientes"`
	// Upper bound enforced by the handler against the configured cap.
	LimiteRecientes int `form:"limite_recientes,default=5" validate:"min=1"`
}

type CerrarCorteRequest struct {
	// Either the corte id or the negocio id (implicit: its open corte).
	CorteID        string          `json:"id_corte"   validate:"omitempty,uuid"`
	NegocioID      string          `json:"id_negocio" validate:"required_without=CorteID,omitempty,uuid"`
	MontoDeclarado decimal.Decimal `json:"monto_declarado" validate:"min=0"`
}

type HistorialQuery struct {
	NegocioID string `form:"id_negocio" validate:"required,uuid"`
	Limite    int    `form:"limite,default=10" validate:"min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RangoResponse struct {
	Desde string `json:"desde"`
	Hasta string `json:"hasta"`
}

type TotalesResponse struct {
	VentasTotales    int              `json:"ventas_totales"`
	MontoVentas      decimal.Decimal  `json:"monto_ventas"`
	EfectivoEsperado decimal.Decimal  `json:"efectivo_esperado"`
	MontoDeclarado   *decimal.Decimal `json:"monto_declarado"`
	Diferencia       *decimal.Decimal `json:"diferencia"`
}

type DesglosePagoResponse struct {
	TipoPagoID string          `json:"id_tipo_pago"`
	Etiqueta   string          `json:"etiqueta"`
	Efectivo   bool            `json:"efectivo"`
	Total      decimal.Decimal `json:"total"`
	Tickets    int             `json:"tickets"`
}

type VentaRecienteResponse struct {
	ID         string          `json:"id"`
	Fecha      string          `json:"fecha"`
	Total      decimal.Decimal `json:"total"`
	MetodoPago string          `json:"metodo_pago"`
}

// UltimoCorteResponse is the compact echo of the previous closed corte shown
// alongside a live summary.
type UltimoCorteResponse struct {
	ID             string          `json:"id"`
	CerradoEn      string          `json:"cerrado_en"`
	MontoDeclarado decimal.Decimal `json:"monto_declarado"`
	VentasTotales  int             `json:"ventas_totales"`
}

// CorteResponse is the single shape for open cortes, live summaries, close
// results and history entries. Fields that only make sense for one of those
// views carry omitempty.
type CorteResponse struct {
	ID            string                  `json:"id"`
	NegocioID     string                  `json:"id_negocio"`
	Estado        string                  `json:"estado"`
	Cobertura     string                  `json:"cobertura"`
	Rango         *RangoResponse          `json:"rango,omitempty"`
	MontoInicial  decimal.Decimal         `json:"monto_inicial"`
	Sugerido      *decimal.Decimal        `json:"monto_sugerido,omitempty"`
	Totales       *TotalesResponse        `json:"totales,omitempty"`
	Desglose      []DesglosePagoResponse  `json:"desglose,omitempty"`
	Recientes     []VentaRecienteResponse `json:"ventas_recientes,omitempty"`
	UltimoCorte   *UltimoCorteResponse    `json:"ultimo_corte,omitempty"`
	RegistradoPor *string                 `json:"registrado_por,omitempty"`
	AbiertoEn     string                  `json:"abierto_en"`
	CerradoEn     *string                 `json:"cerrado_en,omitempty"`
}

type HistorialResponse struct {
	NegocioID string          `json:"id_negocio"`
	Items     []CorteResponse `json:"items"`
}

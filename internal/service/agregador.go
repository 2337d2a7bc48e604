package service

import (
	"context"
	"time"

	"cortecaja/internal/apierror"
	"cortecaja/internal/infra"
	"cortecaja/internal/model"
	"cortecaja/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// EtiquetaSinEspecificar groups ventas whose payment method is missing.
// They are never dropped from the breakdown — dropping them would make
// monto_ventas and the breakdown disagree.
const EtiquetaSinEspecificar = "sin especificar"

// VentaReciente is one display/audit entry of the aggregation — it never
// feeds the totals.
type VentaReciente struct {
	ID         uuid.UUID
	Fecha      time.Time
	Total      decimal.Decimal
	MetodoPago string
}

// Agregado summarizes the paid ventas of one resolved window.
type Agregado struct {
	VentasTotales int
	MontoVentas   decimal.Decimal
	Desglose      []model.DesglosePago
	Recientes     []VentaReciente
}

// Agregador folds ledger rows into totals and per-payment-method buckets.
// Ledger reads go through the circuit breaker with a bounded retry, because a
// summary over a partial ledger read is worse than a delayed one.
type Agregador struct {
	ventas   repository.VentaRepository
	cb       *infra.CircuitBreaker
	intentos int
	backoff  time.Duration
}

func NewAgregador(ventas repository.VentaRepository, cb *infra.CircuitBreaker, intentos int, backoff time.Duration) *Agregador {
	if intentos < 1 {
		intentos = 3
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &Agregador{ventas: ventas, cb: cb, intentos: intentos, backoff: backoff}
}

// Agregar aggregates the window [r.Desde, r.Hasta] for one negocio.
// limRecientes > 0 additionally returns that many most recent ventas.
// Two calls over an unchanged ledger return identical totals and breakdown
// ordering: rows arrive in fecha_venta order and buckets keep first-seen order.
func (a *Agregador) Agregar(ctx context.Context, negocioID uuid.UUID, r Rango, limRecientes int) (*Agregado, error) {
	ventas, err := a.consultarVentas(ctx, negocioID, r)
	if err != nil {
		return nil, err
	}

	ag := &Agregado{MontoVentas: decimal.Zero}

	buckets := make(map[string]*model.DesglosePago)
	var orden []string

	for i := range ventas {
		v := &ventas[i]
		total := totalVenta(v)

		ag.VentasTotales++
		ag.MontoVentas = ag.MontoVentas.Add(total)

		key, etiqueta, efectivo := metodoPago(v)
		b, ok := buckets[key]
		if !ok {
			b = &model.DesglosePago{TipoPagoID: key, Etiqueta: etiqueta, Efectivo: efectivo}
			buckets[key] = b
			orden = append(orden, key)
		}
		b.Total = b.Total.Add(total)
		b.Tickets++
	}

	ag.MontoVentas = ag.MontoVentas.Round(2)
	for _, key := range orden {
		b := buckets[key]
		b.Total = b.Total.Round(2)
		ag.Desglose = append(ag.Desglose, *b)
	}

	if limRecientes > 0 {
		// Rows are ASC: walk from the tail for the newest ones.
		for i := len(ventas) - 1; i >= 0 && len(ag.Recientes) < limRecientes; i-- {
			v := &ventas[i]
			_, etiqueta, _ := metodoPago(v)
			rec := VentaReciente{ID: v.ID, Total: totalVenta(v), MetodoPago: etiqueta}
			if v.FechaVenta != nil {
				rec.Fecha = *v.FechaVenta
			}
			ag.Recientes = append(ag.Recientes, rec)
		}
	}

	return ag, nil
}

// consultarVentas reads the ledger through the breaker, retrying transient
// failures with exponential backoff before giving up.
func (a *Agregador) consultarVentas(ctx context.Context, negocioID uuid.UUID, r Rango) ([]model.Venta, error) {
	var ventas []model.Venta
	var lastErr error

	for intento := 0; intento < a.intentos; intento++ {
		if intento > 0 {
			espera := a.backoff << (intento - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(espera):
			}
		}
		lastErr = a.cb.Execute(func() error {
			var err error
			ventas, err = a.ventas.QueryVentas(ctx, negocioID, r.Desde, r.Hasta)
			return err
		})
		if lastErr == nil {
			return ventas, nil
		}
		log.Warn().
			Str("negocio_id", negocioID.String()).
			Int("intento", intento+1).
			Err(lastErr).
			Msg("fallo consultando el registro de ventas")
	}
	return nil, apierror.LedgerUnavailable(lastErr)
}

// totalVenta resolves a sale's amount: the precomputed total when present and
// non-zero, otherwise the sum of its line items (older rows omit the total).
func totalVenta(v *model.Venta) decimal.Decimal {
	if !v.Total.IsZero() {
		return v.Total.Round(2)
	}
	suma := decimal.Zero
	for _, d := range v.Detalles {
		suma = suma.Add(d.PrecioUnitario.Mul(decimal.NewFromInt(int64(d.Cantidad))))
	}
	return suma.Round(2)
}

func metodoPago(v *model.Venta) (key, etiqueta string, efectivo bool) {
	if v.TipoPago == nil || v.TipoPagoID == nil {
		return "", EtiquetaSinEspecificar, false
	}
	return v.TipoPagoID.String(), v.TipoPago.Tipo, v.TipoPago.Efectivo
}

package service

import (
	"github.com/shopspring/decimal"
)

// Resumen is the reconciliation arithmetic over one window.
type Resumen struct {
	EfectivoEsperado decimal.Decimal
	// Diferencia is nil while the corte is open (live preview); once a closing
	// count is declared it is declarado − esperado, negative on shortage.
	Diferencia *decimal.Decimal
}

// CalcularResumen folds the opening float, the aggregated sales and an
// optionally declared closing count into expected-cash and variance figures.
//
// Only buckets flagged efectivo feed the expected drawer amount — card and
// wallet sales never touch the physical drawer, though they stay in the
// breakdown and monto_ventas. Pure pass-through: a negative opening float is a
// caller contract violation rejected at the API boundary, not clamped here.
func CalcularResumen(montoInicial decimal.Decimal, ag *Agregado, declarado *decimal.Decimal) Resumen {
	esperado := montoInicial
	for _, d := range ag.Desglose {
		if d.Efectivo {
			esperado = esperado.Add(d.Total)
		}
	}
	esperado = round2(esperado)

	res := Resumen{EfectivoEsperado: esperado}
	if declarado != nil {
		dif := round2(declarado.Sub(esperado))
		res.Diferencia = &dif
	}
	return res
}

// round2 applies half-up rounding to cents — the one rounding rule used
// everywhere money is stored or displayed.
func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

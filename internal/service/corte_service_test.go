package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"cortecaja/internal/apierror"
	"cortecaja/internal/dto"
	"cortecaja/internal/infra"
	"cortecaja/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Fakes ───────────────────────────────────────────────────────────────────

type cortesFake struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.CorteCaja
	// injected failure for UltimoCerrado reads
	errUltimo error
}

func newCortesFake() *cortesFake {
	return &cortesFake{items: make(map[uuid.UUID]*model.CorteCaja)}
}

func (f *cortesFake) Crear(_ context.Context, c *model.CorteCaja) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.items {
		if ex.NegocioID == c.NegocioID && ex.Estado == model.CorteAbierto {
			return apierror.Conflict("Ya existe un corte de caja abierto para este negocio")
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *cortesFake) FindByID(_ context.Context, id uuid.UUID) (*model.CorteCaja, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, apierror.NotFound("Corte de caja no encontrado")
	}
	cp := *c
	return &cp, nil
}

func (f *cortesFake) FindAbierto(_ context.Context, negocioID uuid.UUID) (*model.CorteCaja, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.NegocioID == negocioID && c.Estado == model.CorteAbierto {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apierror.NotFound("No hay un corte de caja abierto para este negocio")
}

func (f *cortesFake) Cerrar(_ context.Context, c *model.CorteCaja) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.items[c.ID]
	if !ok || ex.Estado != model.CorteAbierto {
		return apierror.Conflict("El corte de caja ya fue cerrado")
	}
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *cortesFake) UltimoCerrado(_ context.Context, negocioID uuid.UUID) (*model.CorteCaja, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errUltimo != nil {
		return nil, f.errUltimo
	}
	var ultimo *model.CorteCaja
	for _, c := range f.items {
		if c.NegocioID != negocioID || c.Estado != model.CorteCerrado || c.CerradoEn == nil {
			continue
		}
		if ultimo == nil || c.CerradoEn.After(*ultimo.CerradoEn) {
			ultimo = c
		}
	}
	if ultimo == nil {
		return nil, nil
	}
	cp := *ultimo
	return &cp, nil
}

func (f *cortesFake) Historial(_ context.Context, negocioID uuid.UUID, limit int) ([]model.CorteCaja, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CorteCaja
	for _, c := range f.items {
		if c.NegocioID == negocioID && c.Estado == model.CorteCerrado {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CerradoEn.After(*out[j].CerradoEn)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type ventasFake struct {
	mu       sync.Mutex
	ventas   []model.Venta
	fallos   int
	llamadas int
}

func (f *ventasFake) QueryVentas(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]model.Venta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.llamadas++
	if f.fallos > 0 {
		f.fallos--
		return nil, errors.New("registro de ventas caido")
	}
	out := make([]model.Venta, len(f.ventas))
	copy(out, f.ventas)
	return out, nil
}

func (f *ventasFake) List(_ context.Context, _ uuid.UUID, _, _ time.Time, limit int) ([]model.Venta, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Venta, len(f.ventas))
	copy(out, f.ventas)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, int64(len(f.ventas)), nil
}

func (f *ventasFake) agregar(v model.Venta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ventas = append(f.ventas, v)
}

type negociosFake struct{ ids map[uuid.UUID]bool }

func (f *negociosFake) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.ids[id], nil
}

// ─── Fixture ─────────────────────────────────────────────────────────────────

var (
	tipoEfectivo = model.TipoPago{ID: uuid.New(), Tipo: "Efectivo", Efectivo: true}
	tipoTarjeta  = model.TipoPago{ID: uuid.New(), Tipo: "Tarjeta", Efectivo: false}
)

func ventaPagada(tipo *model.TipoPago, total string, fecha time.Time) model.Venta {
	v := model.Venta{
		ID:         uuid.New(),
		Estado:     model.VentaPagada,
		FechaVenta: &fecha,
		Total:      decimal.RequireFromString(total),
	}
	if tipo != nil {
		v.TipoPagoID = &tipo.ID
		v.TipoPago = tipo
	}
	return v
}

type fixture struct {
	cortes    *cortesFake
	ventas    *ventasFake
	svc       CorteService
	negocioID uuid.UUID
	ahora     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	negocioID := uuid.New()
	cortes := newCortesFake()
	ventas := &ventasFake{}
	ag := NewAgregador(ventas, infra.NewCircuitBreaker(infra.DefaultCBConfig()), 2, time.Millisecond)
	svc := NewCorteService(
		cortes,
		&negociosFake{ids: map[uuid.UUID]bool{negocioID: true}},
		NewRangoResolver(cortes),
		ag,
		infra.NewLocalLock(),
	)
	ahora := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	svc.(*corteService).now = func() time.Time { return ahora }
	return &fixture{cortes: cortes, ventas: ventas, svc: svc, negocioID: negocioID, ahora: ahora}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ─── Abrir ───────────────────────────────────────────────────────────────────

func TestAbrirCorte(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID:    f.negocioID.String(),
		MontoInicial: dec("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.CorteAbierto, resp.Estado)
	assert.Equal(t, model.CoberturaDesdeUltimoCorte, resp.Cobertura)
	assert.Equal(t, "100.00", resp.MontoInicial.StringFixed(2))
	assert.NotEmpty(t, resp.ID)
}

func TestAbrirCorteTodoElDia(t *testing.T) {
	f := newFixture(t)
	todoElDia := true

	resp, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID: f.negocioID.String(),
		TodoElDia: &todoElDia,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CoberturaDiaCompleto, resp.Cobertura)
	assert.Equal(t, "0.00", resp.MontoInicial.StringFixed(2))
}

func TestAbrirCorteYaAbierto(t *testing.T) {
	f := newFixture(t)
	req := dto.AbrirCorteRequest{NegocioID: f.negocioID.String()}

	_, err := f.svc.Abrir(context.Background(), nil, req)
	require.NoError(t, err)

	_, err = f.svc.Abrir(context.Background(), nil, req)
	var ce *apierror.ConflictError
	require.ErrorAs(t, err, &ce)
}

func TestAbrirCorteMontoNegativo(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID:    f.negocioID.String(),
		MontoInicial: dec("-1"),
	})
	var ve *apierror.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestAbrirCorteNegocioInexistente(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID: uuid.NewString(),
	})
	var nf *apierror.NotFoundError
	require.ErrorAs(t, err, &nf)
}

// The declared count of the previous close becomes the next opening float when
// the caller does not send one.
func TestAbrirCorteArrastreDeFondo(t *testing.T) {
	f := newFixture(t)
	cerrado := f.ahora.Add(-2 * time.Hour)
	require.NoError(t, f.cortes.Crear(context.Background(), &model.CorteCaja{
		NegocioID:      f.negocioID,
		Estado:         model.CorteCerrado,
		Cobertura:      model.CoberturaDesdeUltimoCorte,
		MontoDeclarado: dec("250.50"),
		CerradoEn:      &cerrado,
	}))

	resp, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID: f.negocioID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "250.50", resp.MontoInicial.StringFixed(2))
}

// Two simultaneous opens for the same negocio: exactly one may win.
func TestAbrirCorteConcurrente(t *testing.T) {
	f := newFixture(t)
	req := dto.AbrirCorteRequest{NegocioID: f.negocioID.String()}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Abrir(context.Background(), nil, req)
		}(i)
	}
	wg.Wait()

	exitos := 0
	for _, err := range errs {
		if err == nil {
			exitos++
			continue
		}
		var ce *apierror.ConflictError
		assert.ErrorAs(t, err, &ce)
	}
	assert.Equal(t, 1, exitos)
}

// ─── Resumen ─────────────────────────────────────────────────────────────────

func TestResumenEnVivo(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID:    f.negocioID.String(),
		MontoInicial: dec("20"),
	})
	require.NoError(t, err)

	f.ventas.agregar(ventaPagada(&tipoEfectivo, "100", f.ahora.Add(-time.Hour)))
	f.ventas.agregar(ventaPagada(&tipoTarjeta, "50", f.ahora.Add(-30*time.Minute)))

	resp, err := f.svc.Resumen(context.Background(), dto.ResumenQuery{NegocioID: f.negocioID.String()})
	require.NoError(t, err)
	require.NotNil(t, resp.Totales)
	assert.Equal(t, 2, resp.Totales.VentasTotales)
	assert.Equal(t, "150.00", resp.Totales.MontoVentas.StringFixed(2))
	// Card sales never enter the drawer: 20 + 100, the 50 stays out.
	assert.Equal(t, "120.00", resp.Totales.EfectivoEsperado.StringFixed(2))
	assert.Nil(t, resp.Totales.Diferencia)
	assert.Len(t, resp.Desglose, 2)

	// A sale posted after the first poll shows up in the next.
	f.ventas.agregar(ventaPagada(&tipoEfectivo, "30", f.ahora.Add(-time.Minute)))
	resp, err = f.svc.Resumen(context.Background(), dto.ResumenQuery{NegocioID: f.negocioID.String()})
	require.NoError(t, err)
	assert.Equal(t, "150.00", resp.Totales.EfectivoEsperado.StringFixed(2))
}

func TestResumenSinCorteAbierto(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Resumen(context.Background(), dto.ResumenQuery{NegocioID: f.negocioID.String()})
	var nf *apierror.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestResumenConRecientes(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{NegocioID: f.negocioID.String()})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		f.ventas.agregar(ventaPagada(&tipoEfectivo, "10", f.ahora.Add(time.Duration(i-5)*time.Minute)))
	}

	resp, err := f.svc.Resumen(context.Background(), dto.ResumenQuery{
		NegocioID:        f.negocioID.String(),
		IncluirRecientes: true,
		LimiteRecientes:  3,
	})
	require.NoError(t, err)
	require.Len(t, resp.Recientes, 3)
	// Newest first.
	assert.True(t, resp.Recientes[0].Fecha > resp.Recientes[1].Fecha)
}

// A failing previous-corte read must fail the summary, not silently drop the
// sugerido and ultimo_corte fields.
func TestResumenErrorLeyendoUltimoCorte(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{NegocioID: f.negocioID.String()})
	require.NoError(t, err)

	f.cortes.errUltimo = errors.New("lectura fallida")
	_, err = f.svc.Resumen(context.Background(), dto.ResumenQuery{NegocioID: f.negocioID.String()})
	require.ErrorContains(t, err, "lectura fallida")
}

// ─── Cerrar ──────────────────────────────────────────────────────────────────

func TestCerrarCorte(t *testing.T) {
	f := newFixture(t)
	abierto, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID:    f.negocioID.String(),
		MontoInicial: dec("20"),
	})
	require.NoError(t, err)

	f.ventas.agregar(ventaPagada(&tipoEfectivo, "100", f.ahora.Add(-time.Hour)))
	f.ventas.agregar(ventaPagada(&tipoTarjeta, "50", f.ahora.Add(-30*time.Minute)))

	resp, err := f.svc.Cerrar(context.Background(), nil, nil, dto.CerrarCorteRequest{
		NegocioID:      f.negocioID.String(),
		MontoDeclarado: decimal.RequireFromString("115"),
	})
	require.NoError(t, err)
	assert.Equal(t, abierto.ID, resp.ID)
	assert.Equal(t, model.CorteCerrado, resp.Estado)
	require.NotNil(t, resp.Totales.Diferencia)
	// Declared 115 against expected 120: five pesos short.
	assert.Equal(t, "-5.00", resp.Totales.Diferencia.StringFixed(2))
	assert.Equal(t, "120.00", resp.Totales.EfectivoEsperado.StringFixed(2))
	require.NotNil(t, resp.CerradoEn)
}

func TestCerrarCorteSobrante(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{
		NegocioID:    f.negocioID.String(),
		MontoInicial: dec("20"),
	})
	require.NoError(t, err)
	f.ventas.agregar(ventaPagada(&tipoEfectivo, "100", f.ahora.Add(-time.Hour)))

	resp, err := f.svc.Cerrar(context.Background(), nil, nil, dto.CerrarCorteRequest{
		NegocioID:      f.negocioID.String(),
		MontoDeclarado: decimal.RequireFromString("125"),
	})
	require.NoError(t, err)
	assert.Equal(t, "5.00", resp.Totales.Diferencia.StringFixed(2))
}

func TestCerrarCorteDosVeces(t *testing.T) {
	f := newFixture(t)
	abierto, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{NegocioID: f.negocioID.String()})
	require.NoError(t, err)

	req := dto.CerrarCorteRequest{
		CorteID:        abierto.ID,
		MontoDeclarado: decimal.RequireFromString("0"),
	}
	_, err = f.svc.Cerrar(context.Background(), nil, nil, req)
	require.NoError(t, err)

	// Never an idempotent no-op: the second count already happened physically.
	_, err = f.svc.Cerrar(context.Background(), nil, nil, req)
	var ce *apierror.ConflictError
	require.ErrorAs(t, err, &ce)
}

// A token scoped to another negocio cannot close a corte it reaches by id.
func TestCerrarCortePorIDDeOtroNegocio(t *testing.T) {
	f := newFixture(t)
	abierto, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{NegocioID: f.negocioID.String()})
	require.NoError(t, err)

	req := dto.CerrarCorteRequest{
		CorteID:        abierto.ID,
		MontoDeclarado: decimal.RequireFromString("10"),
	}
	_, err = f.svc.Cerrar(context.Background(), nil, []string{uuid.NewString()}, req)
	var fe *apierror.ForbiddenError
	require.ErrorAs(t, err, &fe)

	// The corte stays open and a covering scope can still close it.
	resp, err := f.svc.Cerrar(context.Background(), nil, []string{f.negocioID.String()}, req)
	require.NoError(t, err)
	assert.Equal(t, model.CorteCerrado, resp.Estado)
}

func TestCerrarCorteDeclaradoNegativo(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cerrar(context.Background(), nil, nil, dto.CerrarCorteRequest{
		NegocioID:      f.negocioID.String(),
		MontoDeclarado: decimal.RequireFromString("-1"),
	})
	var ve *apierror.ValidationError
	require.ErrorAs(t, err, &ve)
}

// A closed corte is an audit record: amending the ledger afterwards must not
// change what the historial reports.
func TestCorteCerradoEsInmutable(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Abrir(context.Background(), nil, dto.AbrirCorteRequest{NegocioID: f.negocioID.String()})
	require.NoError(t, err)
	f.ventas.agregar(ventaPagada(&tipoEfectivo, "100", f.ahora.Add(-time.Hour)))

	_, err = f.svc.Cerrar(context.Background(), nil, nil, dto.CerrarCorteRequest{
		NegocioID:      f.negocioID.String(),
		MontoDeclarado: decimal.RequireFromString("100"),
	})
	require.NoError(t, err)

	f.ventas.agregar(ventaPagada(&tipoEfectivo, "999", f.ahora.Add(-time.Minute)))

	hist, err := f.svc.Historial(context.Background(), dto.HistorialQuery{
		NegocioID: f.negocioID.String(),
		Limite:    10,
	})
	require.NoError(t, err)
	require.Len(t, hist.Items, 1)
	assert.Equal(t, "100.00", hist.Items[0].Totales.MontoVentas.StringFixed(2))
	assert.Equal(t, 1, hist.Items[0].Totales.VentasTotales)
}

// ─── Historial ───────────────────────────────────────────────────────────────

func TestHistorialOrdenYLimite(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		cerrado := f.ahora.Add(time.Duration(-i) * time.Hour)
		require.NoError(t, f.cortes.Crear(context.Background(), &model.CorteCaja{
			NegocioID:      f.negocioID,
			Estado:         model.CorteCerrado,
			Cobertura:      model.CoberturaDesdeUltimoCorte,
			MontoDeclarado: dec("10"),
			CerradoEn:      &cerrado,
		}))
	}

	hist, err := f.svc.Historial(context.Background(), dto.HistorialQuery{
		NegocioID: f.negocioID.String(),
		Limite:    2,
	})
	require.NoError(t, err)
	require.Len(t, hist.Items, 2)
	require.NotNil(t, hist.Items[0].CerradoEn)
	assert.True(t, *hist.Items[0].CerradoEn > *hist.Items[1].CerradoEn)
}

package service

import (
	"context"
	"errors"
	"time"

	"cortecaja/internal/apierror"
	"cortecaja/internal/dto"
	"cortecaja/internal/infra"
	"cortecaja/internal/model"
	"cortecaja/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CorteService is the public entry point of the reconciliation engine:
// one open corte per negocio, live summaries against the current ledger, and
// an atomic close that freezes the audit snapshot.
type CorteService interface {
	Abrir(ctx context.Context, usuarioID *uuid.UUID, req dto.AbrirCorteRequest) (*dto.CorteResponse, error)
	Resumen(ctx context.Context, q dto.ResumenQuery) (*dto.CorteResponse, error)
	// Cerrar receives the token's negocio scope: a close by id_corte resolves
	// the corte first, so the tenant check can only happen here.
	Cerrar(ctx context.Context, usuarioID *uuid.UUID, negocios []string, req dto.CerrarCorteRequest) (*dto.CorteResponse, error)
	Historial(ctx context.Context, q dto.HistorialQuery) (*dto.HistorialResponse, error)
}

type corteService struct {
	cortes    repository.CorteRepository
	negocios  repository.NegocioRepository
	rangos    *RangoResolver
	agregador *Agregador
	locks     infra.Locker
	// now is swappable for deterministic tests.
	now func() time.Time
}

func NewCorteService(
	cortes repository.CorteRepository,
	negocios repository.NegocioRepository,
	rangos *RangoResolver,
	agregador *Agregador,
	locks infra.Locker,
) CorteService {
	return &corteService{
		cortes:    cortes,
		negocios:  negocios,
		rangos:    rangos,
		agregador: agregador,
		locks:     locks,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *corteService) Abrir(ctx context.Context, usuarioID *uuid.UUID, req dto.AbrirCorteRequest) (*dto.CorteResponse, error) {
	negocioID, err := parseNegocioID(req.NegocioID)
	if err != nil {
		return nil, err
	}
	if req.MontoInicial != nil && req.MontoInicial.IsNegative() {
		return nil, apierror.Validation("El monto inicial no puede ser negativo")
	}
	if err := s.validarNegocio(ctx, negocioID); err != nil {
		return nil, err
	}

	release, err := s.bloquear(ctx, negocioID)
	if err != nil {
		return nil, err
	}
	defer release()

	if abierto, err := s.cortes.FindAbierto(ctx, negocioID); err == nil && abierto != nil {
		return nil, apierror.Conflict("Ya existe un corte de caja abierto para este negocio")
	} else if err != nil {
		var nf *apierror.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	ultimo, err := s.cortes.UltimoCerrado(ctx, negocioID)
	if err != nil {
		return nil, err
	}

	// Carry-over: the new float defaults to what was counted in the drawer at
	// the previous close.
	montoInicial := decimal.Zero
	switch {
	case req.MontoInicial != nil:
		montoInicial = round2(*req.MontoInicial)
	case ultimo != nil && ultimo.MontoDeclarado != nil:
		montoInicial = *ultimo.MontoDeclarado
	}

	cobertura := model.CoberturaDesdeUltimoCorte
	if req.TodoElDia != nil && *req.TodoElDia {
		cobertura = model.CoberturaDiaCompleto
	}

	corte := &model.CorteCaja{
		NegocioID:    negocioID,
		UsuarioID:    usuarioID,
		Estado:       model.CorteAbierto,
		Cobertura:    cobertura,
		MontoInicial: montoInicial,
		AbiertoEn:    s.now(),
	}
	if err := s.cortes.Crear(ctx, corte); err != nil {
		return nil, err
	}

	log.Info().
		Str("corte_id", corte.ID.String()).
		Str("negocio_id", negocioID.String()).
		Str("cobertura", cobertura).
		Str("monto_inicial", montoInicial.StringFixed(2)).
		Msg("corte de caja abierto")

	return corteToResponse(corte), nil
}

// ── Resumen ───────────────────────────────────────────────────────────────────
// Always recomputed live: the range is re-resolved and the ledger re-read on
// every call, so repeated polls during a shift reflect new sales as they post.
// Takes no lock; acceptable staleness, it is an estimate, not the audit record.

func (s *corteService) Resumen(ctx context.Context, q dto.ResumenQuery) (*dto.CorteResponse, error) {
	negocioID, err := parseNegocioID(q.NegocioID)
	if err != nil {
		return nil, err
	}

	corte, err := s.cortes.FindAbierto(ctx, negocioID)
	if err != nil {
		return nil, err
	}

	rango, err := s.rangos.Resolver(ctx, corte.Cobertura, negocioID, s.now())
	if err != nil {
		return nil, err
	}

	limRecientes := 0
	if q.IncluirRecientes {
		limRecientes = q.LimiteRecientes
	}
	ag, err := s.agregador.Agregar(ctx, negocioID, rango, limRecientes)
	if err != nil {
		return nil, err
	}

	res := CalcularResumen(corte.MontoInicial, ag, nil)

	resp := corteToResponse(corte)
	resp.Rango = rangoToResponse(rango)
	resp.Totales = totalesToResponse(ag, res, nil)
	resp.Desglose = desgloseToResponse(ag.Desglose)
	resp.Recientes = recientesToResponse(ag.Recientes)

	ultimo, err := s.cortes.UltimoCerrado(ctx, negocioID)
	if err != nil {
		return nil, err
	}
	if ultimo != nil {
		resp.UltimoCorte = ultimoToResponse(ultimo)
		if ultimo.MontoDeclarado != nil {
			sugerido := *ultimo.MontoDeclarado
			resp.Sugerido = &sugerido
		}
	}
	return resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// One atomic sequence under the negocio lock: resolve range → aggregate →
// compute with the declared count → persist the frozen snapshot. A concurrent
// close fails whole; nothing partial is ever written.

func (s *corteService) Cerrar(ctx context.Context, usuarioID *uuid.UUID, negocios []string, req dto.CerrarCorteRequest) (*dto.CorteResponse, error) {
	if req.MontoDeclarado.IsNegative() {
		return nil, apierror.Validation("El monto declarado no puede ser negativo")
	}

	corte, err := s.resolverCorte(ctx, req)
	if err != nil {
		return nil, err
	}
	// A close by id_corte may target any negocio; the token must cover the one
	// the corte actually belongs to.
	if !negocioAutorizado(negocios, corte.NegocioID) {
		return nil, apierror.Forbidden("Negocio no autorizado para este token")
	}

	release, err := s.bloquear(ctx, corte.NegocioID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock — it may have been closed while we waited.
	corte, err = s.cortes.FindByID(ctx, corte.ID)
	if err != nil {
		return nil, err
	}
	if corte.Estado != model.CorteAbierto {
		return nil, apierror.Conflict("El corte de caja ya fue cerrado")
	}

	ahora := s.now()
	rango, err := s.rangos.Resolver(ctx, corte.Cobertura, corte.NegocioID, ahora)
	if err != nil {
		return nil, err
	}
	ag, err := s.agregador.Agregar(ctx, corte.NegocioID, rango, 0)
	if err != nil {
		return nil, err
	}

	declarado := round2(req.MontoDeclarado)
	res := CalcularResumen(corte.MontoInicial, ag, &declarado)

	corte.Estado = model.CorteCerrado
	if usuarioID != nil {
		corte.UsuarioID = usuarioID
	}
	corte.MontoDeclarado = &declarado
	corte.EfectivoEsperado = &res.EfectivoEsperado
	corte.Diferencia = res.Diferencia
	corte.FechaInicio = &rango.Desde
	corte.FechaFin = &rango.Hasta
	corte.VentasTotales = &ag.VentasTotales
	montoVentas := ag.MontoVentas
	corte.MontoVentas = &montoVentas
	corte.Desglose = ag.Desglose
	corte.CerradoEn = &ahora

	if err := s.cortes.Cerrar(ctx, corte); err != nil {
		return nil, err
	}

	log.Info().
		Str("corte_id", corte.ID.String()).
		Str("negocio_id", corte.NegocioID.String()).
		Str("esperado", res.EfectivoEsperado.StringFixed(2)).
		Str("declarado", declarado.StringFixed(2)).
		Str("diferencia", res.Diferencia.StringFixed(2)).
		Msg("corte de caja cerrado")

	resp := corteToResponse(corte)
	resp.Rango = rangoToResponse(rango)
	resp.Totales = totalesToResponse(ag, res, &declarado)
	resp.Desglose = desgloseToResponse(ag.Desglose)
	return resp, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *corteService) Historial(ctx context.Context, q dto.HistorialQuery) (*dto.HistorialResponse, error) {
	negocioID, err := parseNegocioID(q.NegocioID)
	if err != nil {
		return nil, err
	}

	cortes, err := s.cortes.Historial(ctx, negocioID, q.Limite)
	if err != nil {
		return nil, err
	}

	resp := &dto.HistorialResponse{NegocioID: q.NegocioID, Items: []dto.CorteResponse{}}
	for i := range cortes {
		resp.Items = append(resp.Items, *cerradoToResponse(&cortes[i]))
	}
	return resp, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *corteService) bloquear(ctx context.Context, negocioID uuid.UUID) (func(), error) {
	release, err := s.locks.Acquire(ctx, "caja:"+negocioID.String())
	if errors.Is(err, infra.ErrLockHeld) {
		return nil, apierror.Conflict("Otra operacion de caja esta en curso para este negocio")
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (s *corteService) validarNegocio(ctx context.Context, negocioID uuid.UUID) error {
	existe, err := s.negocios.Exists(ctx, negocioID)
	if err != nil {
		return err
	}
	if !existe {
		return apierror.NotFound("Negocio no encontrado")
	}
	return nil
}

// resolverCorte finds the corte a close request targets: explicitly by id, or
// implicitly the negocio's open corte.
func (s *corteService) resolverCorte(ctx context.Context, req dto.CerrarCorteRequest) (*model.CorteCaja, error) {
	if req.CorteID != "" {
		id, err := uuid.Parse(req.CorteID)
		if err != nil {
			return nil, apierror.Validation("id_corte invalido")
		}
		return s.cortes.FindByID(ctx, id)
	}
	negocioID, err := parseNegocioID(req.NegocioID)
	if err != nil {
		return nil, err
	}
	return s.cortes.FindAbierto(ctx, negocioID)
}

// negocioAutorizado mirrors the middleware check for calls where the negocio
// is only known after resolving the corte. An empty scope means the token is
// unscoped (back-office callers).
func negocioAutorizado(negocios []string, negocioID uuid.UUID) bool {
	if len(negocios) == 0 {
		return true
	}
	id := negocioID.String()
	for _, n := range negocios {
		if n == id {
			return true
		}
	}
	return false
}

func parseNegocioID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.Validation("id_negocio invalido")
	}
	return id, nil
}

// ── Response mapping ──────────────────────────────────────────────────────────

func corteToResponse(c *model.CorteCaja) *dto.CorteResponse {
	resp := &dto.CorteResponse{
		ID:           c.ID.String(),
		NegocioID:    c.NegocioID.String(),
		Estado:       c.Estado,
		Cobertura:    c.Cobertura,
		MontoInicial: c.MontoInicial,
		AbiertoEn:    c.AbiertoEn.UTC().Format(time.RFC3339),
	}
	if c.UsuarioID != nil {
		u := c.UsuarioID.String()
		resp.RegistradoPor = &u
	}
	if c.CerradoEn != nil {
		t := c.CerradoEn.UTC().Format(time.RFC3339)
		resp.CerradoEn = &t
	}
	return resp
}

// cerradoToResponse maps a persisted closed corte — history entries render the
// frozen snapshot, never a recomputation.
func cerradoToResponse(c *model.CorteCaja) *dto.CorteResponse {
	resp := corteToResponse(c)
	if c.FechaInicio != nil && c.FechaFin != nil {
		resp.Rango = &dto.RangoResponse{
			Desde: c.FechaInicio.UTC().Format(time.RFC3339),
			Hasta: c.FechaFin.UTC().Format(time.RFC3339),
		}
	}
	tot := &dto.TotalesResponse{
		MontoDeclarado: c.MontoDeclarado,
		Diferencia:     c.Diferencia,
	}
	if c.VentasTotales != nil {
		tot.VentasTotales = *c.VentasTotales
	}
	if c.MontoVentas != nil {
		tot.MontoVentas = *c.MontoVentas
	}
	if c.EfectivoEsperado != nil {
		tot.EfectivoEsperado = *c.EfectivoEsperado
	}
	resp.Totales = tot
	resp.Desglose = desgloseToResponse(c.Desglose)
	return resp
}

func rangoToResponse(r Rango) *dto.RangoResponse {
	return &dto.RangoResponse{
		Desde: r.Desde.UTC().Format(time.RFC3339),
		Hasta: r.Hasta.UTC().Format(time.RFC3339),
	}
}

func totalesToResponse(ag *Agregado, res Resumen, declarado *decimal.Decimal) *dto.TotalesResponse {
	return &dto.TotalesResponse{
		VentasTotales:    ag.VentasTotales,
		MontoVentas:      ag.MontoVentas,
		EfectivoEsperado: res.EfectivoEsperado,
		MontoDeclarado:   declarado,
		Diferencia:       res.Diferencia,
	}
}

func desgloseToResponse(desglose []model.DesglosePago) []dto.DesglosePagoResponse {
	out := make([]dto.DesglosePagoResponse, 0, len(desglose))
	for _, d := range desglose {
		out = append(out, dto.DesglosePagoResponse{
			TipoPagoID: d.TipoPagoID,
			Etiqueta:   d.Etiqueta,
			Efectivo:   d.Efectivo,
			Total:      d.Total,
			Tickets:    d.Tickets,
		})
	}
	return out
}

func recientesToResponse(recientes []VentaReciente) []dto.VentaRecienteResponse {
	out := make([]dto.VentaRecienteResponse, 0, len(recientes))
	for _, r := range recientes {
		out = append(out, dto.VentaRecienteResponse{
			ID:         r.ID.String(),
			Fecha:      r.Fecha.UTC().Format(time.RFC3339),
			Total:      r.Total,
			MetodoPago: r.MetodoPago,
		})
	}
	return out
}

func ultimoToResponse(c *model.CorteCaja) *dto.UltimoCorteResponse {
	resp := &dto.UltimoCorteResponse{ID: c.ID.String()}
	if c.CerradoEn != nil {
		resp.CerradoEn = c.CerradoEn.UTC().Format(time.RFC3339)
	}
	if c.MontoDeclarado != nil {
		resp.MontoDeclarado = *c.MontoDeclarado
	}
	if c.VentasTotales != nil {
		resp.VentasTotales = *c.VentasTotales
	}
	return resp
}

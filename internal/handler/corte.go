package handler

import (
	"fmt"
	"net/http"

	"cortecaja/internal/apierror"
	"cortecaja/internal/dto"
	"cortecaja/internal/middleware"
	"cortecaja/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CorteHandler struct {
	svc service.CorteService
	// Listing caps, from RECIENTES_LIMITE_MAX / HISTORIAL_LIMITE_MAX.
	maxRecientes int
	maxHistorial int
}

func NewCorteHandler(svc service.CorteService, maxRecientes, maxHistorial int) *CorteHandler {
	return &CorteHandler{svc: svc, maxRecientes: maxRecientes, maxHistorial: maxHistorial}
}

// Abrir godoc
// @Summary Abre un corte de caja para un negocio
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCorteRequest true "Datos de apertura"
// @Success 201 {object} dto.CorteResponse
// @Failure 404 {object} apierror.NotFoundError
// @Failure 409 {object} apierror.ConflictError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/caja/abrir [post]
func (h *CorteHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCorteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if !requireNegocio(c, req.NegocioID) {
		return
	}

	resp, err := h.svc.Abrir(c.Request.Context(), usuarioDelToken(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Resumen godoc
// @Summary Resumen en vivo del corte abierto
// @Description Recalcula el resumen contra el registro de ventas actual; no se cachea.
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id_negocio        query string true  "Negocio"
// @Param incluir_recientes query bool   false "Incluir ventas recientes"
// @Param limite_recientes  query int    false "Cuantas ventas recientes (1-20)"
// @Success 200 {object} dto.CorteResponse
// @Failure 404 {object} apierror.NotFoundError
// @Failure 503 {object} apierror.APIError
// @Router /v1/caja/resumen [get]
func (h *CorteHandler) Resumen(c *gin.Context) {
	var q dto.ResumenQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	if q.LimiteRecientes > h.maxRecientes {
		c.JSON(http.StatusUnprocessableEntity,
			apierror.Validation(fmt.Sprintf("limite_recientes no puede exceder %d", h.maxRecientes)))
		return
	}
	if !requireNegocio(c, q.NegocioID) {
		return
	}

	resp, err := h.svc.Resumen(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra el corte abierto con el monto contado
// @Description Congela el resumen como registro de auditoria inmutable.
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCorteRequest true "Monto declarado"
// @Success 200 {object} dto.CorteResponse
// @Failure 404 {object} apierror.NotFoundError
// @Failure 409 {object} apierror.ConflictError
// @Failure 503 {object} apierror.APIError
// @Router /v1/caja/corte [post]
func (h *CorteHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCorteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.NegocioID != "" && !requireNegocio(c, req.NegocioID) {
		return
	}

	// The id_corte path is scoped inside the service, once the corte's negocio
	// is known.
	resp, err := h.svc.Cerrar(c.Request.Context(), usuarioDelToken(c), negociosDelToken(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial godoc
// @Summary Lista los cortes cerrados, del mas reciente al mas antiguo
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id_negocio query string true  "Negocio"
// @Param limite     query int    false "Cuantos cortes (1-30)"
// @Success 200 {object} dto.HistorialResponse
// @Router /v1/caja/historial [get]
func (h *CorteHandler) Historial(c *gin.Context) {
	var q dto.HistorialQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	if q.Limite > h.maxHistorial {
		c.JSON(http.StatusUnprocessableEntity,
			apierror.Validation(fmt.Sprintf("limite no puede exceder %d", h.maxHistorial)))
		return
	}
	if !requireNegocio(c, q.NegocioID) {
		return
	}

	resp, err := h.svc.Historial(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// negociosDelToken returns the token's negocio scope; empty means unscoped.
func negociosDelToken(c *gin.Context) []string {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return nil
	}
	return claims.Negocios
}

// usuarioDelToken extracts the caller's user id, when the token carries one.
func usuarioDelToken(c *gin.Context) *uuid.UUID {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return nil
	}
	if id, err := uuid.Parse(claims.UserID); err == nil {
		return &id
	}
	return nil
}

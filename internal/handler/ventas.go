package handler

import (
	"net/http"
	"time"

	"cortecaja/internal/apierror"
	"cortecaja/internal/dto"
	"cortecaja/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VentasHandler exposes a read-only listing over the sales ledger — the same
// repository the aggregator reads, for spot-checking a corte against its sales.
type VentasHandler struct{ repo repository.VentaRepository }

func NewVentasHandler(repo repository.VentaRepository) *VentasHandler {
	return &VentasHandler{repo: repo}
}

// Listar godoc
// @Summary Lista ventas pagadas de un negocio en un periodo
// @Tags ventas
// @Produce json
// @Security BearerAuth
// @Param id_negocio query string true  "Negocio"
// @Param desde      query string false "RFC 3339; default inicio del dia"
// @Param hasta      query string false "RFC 3339; default ahora"
// @Param limite     query int    false "Maximo de filas (1-200)"
// @Success 200 {object} dto.VentaListResponse
// @Router /v1/ventas [get]
func (h *VentasHandler) Listar(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQueryAndValidate(c, &filter) {
		return
	}
	if !requireNegocio(c, filter.NegocioID) {
		return
	}

	negocioID, err := uuid.Parse(filter.NegocioID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.Validation("id_negocio invalido"))
		return
	}

	ahora := time.Now().UTC()
	desde := time.Date(ahora.Year(), ahora.Month(), ahora.Day(), 0, 0, 0, 0, time.UTC)
	hasta := ahora
	if filter.Desde != "" {
		if desde, err = time.Parse(time.RFC3339, filter.Desde); err != nil {
			c.JSON(http.StatusUnprocessableEntity, apierror.Validation("desde debe ser RFC 3339"))
			return
		}
	}
	if filter.Hasta != "" {
		if hasta, err = time.Parse(time.RFC3339, filter.Hasta); err != nil {
			c.JSON(http.StatusUnprocessableEntity, apierror.Validation("hasta debe ser RFC 3339"))
			return
		}
	}

	ventas, total, err := h.repo.List(c.Request.Context(), negocioID, desde, hasta, filter.Limite)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.VentaListResponse{Data: []dto.VentaListItem{}, Total: total}
	for i := range ventas {
		v := &ventas[i]
		item := dto.VentaListItem{ID: v.ID.String(), Total: v.Total}
		if v.FechaVenta != nil {
			item.Fecha = v.FechaVenta.UTC().Format(time.RFC3339)
		}
		if v.TipoPago != nil {
			item.MetodoPago = v.TipoPago.Tipo
		}
		resp.Data = append(resp.Data, item)
	}
	c.JSON(http.StatusOK, resp)
}

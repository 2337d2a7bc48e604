package handler

import (
	"errors"
	"net/http"
	"reflect"

	"cortecaja/internal/apierror"
	"cortecaja/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQueryAndValidate is the query-string counterpart of bindAndValidate.
func bindQueryAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.ValidationFields(fields))
		return false
	}
	return true
}

// respondError maps the engine's error taxonomy to HTTP statuses. The caller
// needs to distinguish "retry later" (503) from "refresh your state" (409)
// from "fix the form" (422) — collapsing them would prescribe the wrong
// operator action.
func respondError(c *gin.Context, err error) {
	var ve *apierror.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, ve)
		return
	}
	var ce *apierror.ConflictError
	if errors.As(err, &ce) {
		c.JSON(http.StatusConflict, ce)
		return
	}
	var fe *apierror.ForbiddenError
	if errors.As(err, &fe) {
		c.JSON(http.StatusForbidden, fe)
		return
	}
	var nf *apierror.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, nf)
		return
	}
	var lu *apierror.LedgerUnavailableError
	if errors.As(err, &lu) {
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, apierror.New("El registro de ventas no esta disponible, intente nuevamente"))
		return
	}

	log.Error().
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Err(err).
		Msg("unexpected service error")
	c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
}

// requireNegocio rejects requests whose token does not cover the negocio.
func requireNegocio(c *gin.Context, negocioID string) bool {
	if !middleware.NegocioAutorizado(middleware.GetClaims(c), negocioID) {
		c.JSON(http.StatusForbidden, apierror.New("Negocio no autorizado para este token"))
		return false
	}
	return true
}

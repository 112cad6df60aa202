package handler

import (
	"errors"
	"net/http"
	"reflect"

	"belezapos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Teach the validator to treat decimal.Decimal as a float for the
	// numeric tags (gt, min, ...).
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// bindAndValidate decodes the JSON body and runs struct validation, replying
// with the validation envelope on failure. Returns false when the request was
// already answered.
func bindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Corpo da requisição inválido"))
		return false
	}
	if err := validate.Struct(obj); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondErro maps the domain error taxonomy to HTTP status codes.
func respondErro(c *gin.Context, err error) {
	switch apierror.KindOf(err) {
	case apierror.KindValidacao:
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case apierror.KindPermissao:
		c.JSON(http.StatusForbidden, apierror.New(err.Error()))
	case apierror.KindEstadoSessao:
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case apierror.KindSaldoInsuficiente:
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case apierror.KindConflitoSync:
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case apierror.KindRede:
		c.JSON(http.StatusServiceUnavailable, apierror.New(err.Error()))
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("erro interno")
		c.JSON(http.StatusInternalServerError, apierror.New("Erro interno do servidor"))
	}
}

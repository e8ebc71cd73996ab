package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// Категории ошибок в поле "error" ответа.
const (
	categoryValidation      = "validation_error"
	categoryEmptyCart       = "empty_cart"
	categoryUnauthenticated = "unauthenticated"
	categoryForbidden       = "forbidden"
	categoryNotFound        = "not_found"
	categoryConflict        = "conflict"
	categoryInternal        = "internal"

	internalErrorDetail = "internal server error"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// classify переводит доменную ошибку в HTTP-статус и тело ответа.
func classify(err error) (int, errorBody) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorBody{Error: categoryValidation, Detail: validation.Message, Field: validation.Field}
	case domain.IsValidation(err):
		return http.StatusBadRequest, errorBody{Error: categoryValidation, Detail: err.Error()}
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, errorBody{Error: categoryEmptyCart, Detail: domain.ErrEmptyCart.Error()}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Error: categoryUnauthenticated, Detail: domain.ErrUnauthenticated.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: categoryForbidden, Detail: domain.ErrForbidden.Error()}
	case domain.IsNotFound(err):
		return http.StatusNotFound, errorBody{Error: categoryNotFound, Detail: err.Error()}
	case domain.IsConflict(err):
		return http.StatusConflict, errorBody{Error: categoryConflict, Detail: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: categoryInternal, Detail: internalErrorDetail}
	}
}

// writeError отвечает ошибкой и прерывает цепочку. Неклассифицированные ошибки логируются, детали наружу не уходят.
func writeError(c *gin.Context, logger *log.Entry, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(log.Fields{
			"request_id": requestIDFrom(c),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

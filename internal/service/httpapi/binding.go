package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

const maxBodyBytes = 1 << 20

// authorize проверяет права до разбора тела, чтобы анонимный запрос получал 401, а не 400.
func (h *handlers) authorize(c *gin.Context, op access.Operation) bool {
	if err := access.Check(callerFrom(c), op, access.Resource{}); err != nil {
		writeError(c, h.logger, err)
		return false
	}
	return true
}

// bindJSON разбирает тело в dst и переводит ошибки binding в ValidationError.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return domain.NewValidationError(fe.Field(), "this field is required")
		}
		return domain.NewValidationError(fe.Field(), fmt.Sprintf("failed on %q rule", fe.Tag()))
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return domain.NewValidationError(typeErr.Field, "incorrect type")
	}
	if errors.Is(err, io.EOF) {
		return domain.NewValidationError("", "request body is required")
	}
	return domain.NewValidationError("", "malformed JSON body")
}

// readBody читает тело целиком, чтобы его можно было и захешировать, и разобрать.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return nil, domain.NewValidationError("", "request body is too large")
	}
	return data, nil
}

// decodeFields разбирает JSON-объект с сохранением чисел как json.Number.
// Пустое тело означает пустой объект.
func decodeFields(data []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, bindError(err)
	}
	return fields, nil
}

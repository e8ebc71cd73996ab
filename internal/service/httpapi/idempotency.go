package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

const (
	idempotencyKeyHeader      = "Idempotency-Key"
	idempotencyReplayedHeader = "Idempotent-Replayed"
	idempotencyTTL            = 24 * time.Hour
	maxIdempotencyKeyLength   = 255
)

// withIdempotency выполняет run не более одного раза на Idempotency-Key.
// Без заголовка (или без хранилища ключей) запрос обрабатывается как обычно.
// run возвращает статус и тело успешного ответа.
func (h *handlers) withIdempotency(c *gin.Context, body []byte, run func() (int, any, error)) {
	key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	if h.idempotency == nil || key == "" {
		status, payload, err := run()
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(status, payload)
		return
	}
	if len(key) > maxIdempotencyKeyLength {
		writeError(c, h.logger, domain.NewValidationError(idempotencyKeyHeader, "must be at most 255 characters"))
		return
	}

	ctx := c.Request.Context()
	hash := idempotencyRequestHash(c, callerFrom(c), body)
	record, err := h.idempotency.CreateProcessing(ctx, key, hash, h.now().Add(idempotencyTTL))
	if err != nil {
		h.replayIdempotency(c, err, record)
		return
	}

	status, payload, runErr := run()
	if runErr != nil {
		status, errBody := classify(runErr)
		data, _ := json.Marshal(errBody)
		if markErr := h.idempotency.MarkFailed(ctx, key, data, status); markErr != nil {
			h.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to store idempotency failure response")
		}
		writeError(c, h.logger, runErr)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if markErr := h.idempotency.MarkDone(ctx, key, data, status); markErr != nil {
		h.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to store idempotent success response")
	}
	c.Data(status, gin.MIMEJSON, data)
}

func (h *handlers) replayIdempotency(c *gin.Context, createErr error, record domain.IdempotencyRecord) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		writeError(c, h.logger, createErr)
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			if len(record.ResponseBody) == 0 || record.HTTPStatus == 0 {
				writeError(c, h.logger, errors.New("idempotency cache is empty"))
				return
			}
			c.Header(idempotencyReplayedHeader, "true")
			c.Data(record.HTTPStatus, gin.MIMEJSON, record.ResponseBody)
			c.Abort()
		case domain.IdempotencyStatusProcessing:
			writeError(c, h.logger, domain.ErrIdempotencyInProgress)
		default:
			writeError(c, h.logger, errors.New("unknown idempotency record status"))
		}
	default:
		writeError(c, h.logger, createErr)
	}
}

// idempotencyRequestHash связывает ключ с методом, путём, пользователем и телом запроса.
func idempotencyRequestHash(c *gin.Context, caller domain.Caller, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(c.Request.Method))
	sum.Write([]byte{0})
	sum.Write([]byte(c.Request.URL.Path))
	sum.Write([]byte{0})
	sum.Write([]byte(strconv.FormatInt(caller.UserID, 10)))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/service/ordering"
)

func (h *handlers) listOrders(c *gin.Context) {
	filter, err := orderFilterFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	page, err := h.orders.List(c.Request.Context(), callerFrom(c), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	results := make([]orderResponse, 0, len(page.Orders))
	for _, order := range page.Orders {
		results = append(results, toOrder(order))
	}
	c.JSON(http.StatusOK, newPage(filter.Page, page.Total, results))
}

// placeOrder оформляет заказ из корзины. С заголовком Idempotency-Key повтор возвращает тот же ответ.
func (h *handlers) placeOrder(c *gin.Context) {
	if !h.authorize(c, access.OpOrderPlace) {
		return
	}
	body, err := readBody(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.withIdempotency(c, body, func() (int, any, error) {
		order, err := h.orders.Place(c.Request.Context(), callerFrom(c))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, toOrder(order), nil
	})
}

func (h *handlers) getOrder(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	details, err := h.orders.Get(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toOrderWithTimeline(details.Order, details.Timeline))
}

func (h *handlers) replaceOrder(c *gin.Context) {
	h.updateOrder(c, access.OpOrderReplace)
}

func (h *handlers) patchOrder(c *gin.Context) {
	h.updateOrder(c, access.OpOrderPatch)
}

func (h *handlers) updateOrder(c *gin.Context, op access.Operation) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	body, err := readBody(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	fields, err := decodeFields(body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	req := ordering.UpdateRequest{}
	req.Status, req.HasStatus = fields["status"]
	req.DeliveryCrew, req.HasDeliveryCrew = fields["delivery_crew"]

	order, err := h.orders.Update(c.Request.Context(), callerFrom(c), id, req, op)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(order))
}

func (h *handlers) deleteOrder(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.orders.Delete(c.Request.Context(), callerFrom(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

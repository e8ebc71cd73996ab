package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
)

type cartAddRequest struct {
	MenuItemID *int64 `json:"menuitem_id" binding:"required"`
	Quantity   *int   `json:"quantity"`
}

func (h *handlers) viewCart(c *gin.Context) {
	lines, err := h.cart.View(c.Request.Context(), callerFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	out := make([]lineResponse, 0, len(lines))
	for _, line := range lines {
		out = append(out, toCartLine(line))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) addToCart(c *gin.Context) {
	if !h.authorize(c, access.OpCartAdd) {
		return
	}
	var req cartAddRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	line, err := h.cart.Add(c.Request.Context(), callerFrom(c), *req.MenuItemID, req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toCartLine(line))
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), callerFrom(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Cart cleared"})
}

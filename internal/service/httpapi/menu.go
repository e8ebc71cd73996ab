package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

// menuItemRequest — тело POST/PUT: все поля обязательны.
type menuItemRequest struct {
	Title     *string          `json:"title" binding:"required"`
	Price     *decimal.Decimal `json:"price" binding:"required"`
	Inventory *int             `json:"inventory" binding:"required"`
}

func (r menuItemRequest) item() domain.MenuItem {
	return domain.MenuItem{Title: *r.Title, Price: *r.Price, Inventory: *r.Inventory}
}

type menuItemPatchRequest struct {
	Title     *string          `json:"title"`
	Price     *decimal.Decimal `json:"price"`
	Inventory *int             `json:"inventory"`
}

func (h *handlers) listMenuItems(c *gin.Context) {
	filter, err := menuFilterFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	page, err := h.catalog.List(c.Request.Context(), callerFrom(c), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	results := make([]menuItemResponse, 0, len(page.Items))
	for _, item := range page.Items {
		results = append(results, toMenuItem(item))
	}
	c.JSON(http.StatusOK, newPage(filter.Page, page.Total, results))
}

func (h *handlers) getMenuItem(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	item, err := h.catalog.Get(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toMenuItem(item))
}

func (h *handlers) createMenuItem(c *gin.Context) {
	if !h.authorize(c, access.OpMenuCreate) {
		return
	}
	var req menuItemRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	item, err := h.catalog.Create(c.Request.Context(), callerFrom(c), req.item())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toMenuItem(item))
}

func (h *handlers) replaceMenuItem(c *gin.Context) {
	if !h.authorize(c, access.OpMenuReplace) {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req menuItemRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	item, err := h.catalog.Replace(c.Request.Context(), callerFrom(c), id, req.item())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toMenuItem(item))
}

func (h *handlers) patchMenuItem(c *gin.Context) {
	if !h.authorize(c, access.OpMenuPatch) {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req menuItemPatchRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	patch := domain.MenuItemPatch{Title: req.Title, Price: req.Price, Inventory: req.Inventory}
	item, err := h.catalog.Patch(c.Request.Context(), callerFrom(c), id, patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toMenuItem(item))
}

func (h *handlers) deleteMenuItem(c *gin.Context) {
	if !h.authorize(c, access.OpMenuDelete) {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), callerFrom(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}


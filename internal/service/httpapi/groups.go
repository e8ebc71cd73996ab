package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/littlelemon/internal/access"
	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
)

type memberRequest struct {
	UserID *int64 `json:"user_id" binding:"required"`
}

// groupFromPath возвращает группу по slug; неизвестный slug даёт 404.
func groupFromPath(c *gin.Context) (domain.Group, error) {
	group, ok := domain.ParseGroupSlug(c.Param("group"))
	if !ok {
		return "", fmt.Errorf("group %q: %w", c.Param("group"), domain.ErrNotFound)
	}
	return group, nil
}

func (h *handlers) listMembers(c *gin.Context) {
	group, err := groupFromPath(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	users, err := h.membership.List(c.Request.Context(), callerFrom(c), group)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUser(user))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) addMember(c *gin.Context) {
	group, err := groupFromPath(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !h.authorize(c, access.OpGroupAdd) {
		return
	}
	var req memberRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if _, err := h.membership.Add(c.Request.Context(), callerFrom(c), group, *req.UserID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse{Message: fmt.Sprintf("User added to %s group", group)})
}

func (h *handlers) removeMember(c *gin.Context) {
	group, err := groupFromPath(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.membership.Remove(c.Request.Context(), callerFrom(c), group, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("User removed from %s group", group)})
}

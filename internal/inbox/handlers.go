package inbox

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/apperr"
)

// Handler exposes the notification feed over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// ===== GET /notifications =====

func (h *Handler) List(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)

	opt := ListOptions{Type: c.QueryParam("type")}
	if v := c.QueryParam("limit"); v != "" {
		opt.Limit, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("offset"); v != "" {
		opt.Offset, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("unreadOnly"); v == "true" {
		opt.UnreadOnly = true
	}

	items, err := h.Svc.List(c.Request().Context(), userID, role, opt)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"notifications": items,
	})
}

// ===== GET /notifications/unread-count =====

func (h *Handler) UnreadCount(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)

	count, err := h.Svc.UnreadCount(c.Request().Context(), userID, role)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"count":   count,
	})
}

// ===== PATCH /notifications/:id/read =====

func (h *Handler) MarkRead(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)

	if err := h.Svc.MarkRead(c.Request().Context(), c.Param("id"), userID, role); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Notification marked as read.",
	})
}

// ===== POST /notifications/mark-all-read =====

func (h *Handler) MarkAllRead(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)

	count, err := h.Svc.MarkAllRead(c.Request().Context(), userID, role)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "All notifications marked as read.",
		"updated": count,
	})
}

// ===== DELETE /notifications/:id =====

func (h *Handler) Delete(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)

	if err := h.Svc.Delete(c.Request().Context(), c.Param("id"), userID, role); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Notification deleted.",
	})
}

// ===== GET /notifications/preferences =====

func (h *Handler) Preferences(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	prefs, err := h.Svc.Preferences(c.Request().Context(), userID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"preferences": prefs,
	})
}

// ===== PUT /notifications/preferences =====

func (h *Handler) UpdatePreferences(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	patch := map[string]interface{}{}
	if err := c.Bind(&patch); err != nil {
		return apperr.JSON(c, apperr.Validation("Invalid request body."))
	}
	prefs, err := h.Svc.UpdatePreferences(c.Request().Context(), userID, patch)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"preferences": prefs,
	})
}

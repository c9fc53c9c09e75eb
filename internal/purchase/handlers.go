package purchase

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/apperr"
)

// Handler exposes the purchase request lifecycle over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// ===== POST /marketplace/listings/:id/requests =====

func (h *Handler) Create(c echo.Context) error {
	buyerID, _ := c.Get("user_id").(string)

	var body struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.JSON(c, apperr.Validation("Invalid request body."))
	}

	request, err := h.Svc.Create(c.Request().Context(), c.Param("id"), buyerID, body.Message)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Request sent successfully!",
		"request": request,
	})
}

// ===== GET /marketplace/listings/:id/requests =====

func (h *Handler) ForListing(c echo.Context) error {
	sellerID, _ := c.Get("user_id").(string)

	requests, err := h.Svc.ForListing(c.Request().Context(), c.Param("id"), sellerID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}

// ===== GET /marketplace/listings/:id/requests/status =====

func (h *Handler) Status(c echo.Context) error {
	buyerID, _ := c.Get("user_id").(string)

	request, err := h.Svc.Status(c.Request().Context(), c.Param("id"), buyerID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "request": request})
}

// ===== GET /marketplace/requests/mine =====

func (h *Handler) Mine(c echo.Context) error {
	buyerID, _ := c.Get("user_id").(string)

	requests, err := h.Svc.Mine(c.Request().Context(), buyerID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}

// ===== GET /marketplace/requests/incoming =====

func (h *Handler) Incoming(c echo.Context) error {
	sellerID, _ := c.Get("user_id").(string)

	requests, err := h.Svc.Incoming(c.Request().Context(), sellerID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}

// ===== PATCH /marketplace/requests/:id/respond =====

func (h *Handler) Respond(c echo.Context) error {
	sellerID, _ := c.Get("user_id").(string)

	var body struct {
		Accept *bool `json:"accept"`
	}
	if err := c.Bind(&body); err != nil || body.Accept == nil {
		return apperr.JSON(c, apperr.Validation("accept is required."))
	}

	request, msg, err := h.Svc.Respond(c.Request().Context(), c.Param("id"), sellerID, *body.Accept)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": msg,
		"request": request,
	})
}

// ===== POST /marketplace/requests/:id/cancel =====

func (h *Handler) Cancel(c echo.Context) error {
	buyerID, _ := c.Get("user_id").(string)

	if err := h.Svc.Cancel(c.Request().Context(), c.Param("id"), buyerID); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Request cancelled."})
}

// ===== DELETE /marketplace/requests/:id =====

func (h *Handler) Delete(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	if err := h.Svc.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Request deleted."})
}

// ===== POST /marketplace/requests/delete-many =====

func (h *Handler) DeleteMany(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	var body struct {
		RequestIDs []string `json:"requestIds"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.JSON(c, apperr.Validation("Invalid request body."))
	}
	if len(body.RequestIDs) == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"success":      true,
			"message":      "No requests to delete.",
			"deletedCount": 0,
		})
	}

	count, err := h.Svc.DeleteMany(c.Request().Context(), body.RequestIDs, userID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"message":      fmt.Sprintf("%d requests deleted.", count),
		"deletedCount": count,
	})
}

package trust

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/apperr"
)

// Handler exposes the trust flows over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// ===== POST /trust/blocks =====

func (h *Handler) BlockUser(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	var body struct {
		BlockedUserID string `json:"blockedUserId"`
		Reason        string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil || body.BlockedUserID == "" {
		return apperr.JSON(c, apperr.Validation("blockedUserId is required."))
	}

	msg, err := h.Svc.BlockUser(c.Request().Context(), userID, body.BlockedUserID, body.Reason)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}

// ===== DELETE /trust/blocks/:userId =====

func (h *Handler) UnblockUser(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	if err := h.Svc.UnblockUser(c.Request().Context(), userID, c.Param("userId")); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User unblocked successfully."})
}

// ===== GET /trust/blocks =====

func (h *Handler) ListBlocked(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	blocks, err := h.Svc.ListBlocked(c.Request().Context(), userID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "blocks": blocks})
}

// ===== POST /trust/ratings =====

func (h *Handler) RateSeller(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	var body struct {
		SellerID  string `json:"sellerId"`
		ListingID string `json:"listingId"`
		Rating    int    `json:"rating"`
		Review    string `json:"review"`
	}
	if err := c.Bind(&body); err != nil || body.SellerID == "" || body.ListingID == "" {
		return apperr.JSON(c, apperr.Validation("sellerId, listingId and rating are required."))
	}

	rating, err := h.Svc.RateSeller(c.Request().Context(), body.SellerID, userID, body.ListingID, body.Rating, body.Review)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Seller rating submitted successfully.",
		"rating":  rating,
	})
}

// ===== GET /trust/sellers/:id/reputation =====

func (h *Handler) SellerReputation(c echo.Context) error {
	rep, err := h.Svc.SellerReputation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "reputation": rep})
}

// ===== POST /trust/reports =====

func (h *Handler) CreateReport(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	var body struct {
		ReportedUserID string  `json:"reportedUserId"`
		ListingID      *string `json:"listingId"`
		Category       string  `json:"category"`
		Description    string  `json:"description"`
	}
	if err := c.Bind(&body); err != nil || body.ReportedUserID == "" {
		return apperr.JSON(c, apperr.Validation("reportedUserId is required."))
	}

	report, err := h.Svc.CreateReport(c.Request().Context(), userID, body.ReportedUserID, body.ListingID, body.Category, body.Description)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Report submitted. Our moderators will review it.",
		"report":  report,
	})
}

// ===== GET /trust/reports/mine =====

func (h *Handler) MyReports(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	reports, err := h.Svc.MyReports(c.Request().Context(), userID)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "reports": reports})
}

// ===== GET /admin/reports =====

func (h *Handler) ModerationReports(c echo.Context) error {
	reports, err := h.Svc.ModerationReports(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "reports": reports})
}

// ===== PATCH /admin/reports/:id =====

func (h *Handler) ReviewReport(c echo.Context) error {
	reviewerID, _ := c.Get("user_id").(string)

	var body struct {
		Status          string `json:"status"`
		ResolutionNotes string `json:"resolutionNotes"`
	}
	if err := c.Bind(&body); err != nil || body.Status == "" {
		return apperr.JSON(c, apperr.Validation("status is required."))
	}

	report, err := h.Svc.ReviewReport(c.Request().Context(), c.Param("id"), reviewerID, body.Status, body.ResolutionNotes)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Report updated successfully.",
		"report":  report,
	})
}

// ===== GET /admin/trust-stats =====

func (h *Handler) TrustStats(c echo.Context) error {
	stats, err := h.Svc.TrustStats(c.Request().Context())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "stats": stats})
}

package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// BroadcastWriter writes one shared in-app row for an audience.
type BroadcastWriter interface {
	CreateBroadcast(ctx context.Context, audience, ntype, title, body string, data map[string]string) error
}

// Announcements publishes admin notices to a whole audience.
type Announcements struct {
	Inbox BroadcastWriter
}

var validAudiences = map[string]bool{
	"all":      true,
	"students": true,
	"teachers": true,
	"admins":   true,
}

// ===== POST /admin/announcements =====

func (h *Announcements) Create(c echo.Context) error {
	var body struct {
		Audience string `json:"audience"`
		Title    string `json:"title"`
		Body     string `json:"body"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request body."})
	}
	if !validAudiences[body.Audience] {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "audience must be all, students, teachers or admins."})
	}
	body.Title = strings.TrimSpace(body.Title)
	body.Body = strings.TrimSpace(body.Body)
	if body.Title == "" || body.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Title and body are required."})
	}

	err := h.Inbox.CreateBroadcast(c.Request().Context(), body.Audience, "admin_announcement",
		body.Title, body.Body, map[string]string{"iconKey": "general"})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to publish announcement."})
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Announcement published."})
}

// ===== POST /notices =====

// PublishNotice lets teachers and admins post a campus notice to students.
func (h *Announcements) PublishNotice(c echo.Context) error {
	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request body."})
	}
	body.Title = strings.TrimSpace(body.Title)
	body.Body = strings.TrimSpace(body.Body)
	if body.Title == "" || body.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Title and body are required."})
	}

	err := h.Inbox.CreateBroadcast(c.Request().Context(), "students", "notice_update",
		body.Title, body.Body, map[string]string{"iconKey": "notice"})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to publish notice."})
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Notice published."})
}

package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/db"
)

// GET /admin/stats
func Stats(c echo.Context) error {
	ctx := c.Request().Context()

	var users, listings, requests, reports, notifications int

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&listings)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_requests`).Scan(&requests)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM marketplace_reports`).Scan(&reports)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&notifications)

	return c.JSON(http.StatusOK, echo.Map{
		"success":           true,
		"users":             users,
		"listings":          listings,
		"purchase_requests": requests,
		"reports":           reports,
		"notifications":     notifications,
	})
}

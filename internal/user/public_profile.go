package user

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/db"
)

// GET /user/:id/profile
func GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Missing user id."})
	}

	var (
		id        string
		name      string
		image     string
		role      string
		createdAt time.Time
	)

	err := db.Conn.QueryRow(context.Background(),
		`SELECT id::text, name, image, role, created_at FROM users WHERE id = $1 AND is_active`,
		userID,
	).Scan(&id, &name, &image, &role, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found."})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to fetch user."})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"id":         id,
			"name":       name,
			"image":      image,
			"role":       role,
			"created_at": createdAt.UTC().Format(time.RFC3339),
		},
	})
}

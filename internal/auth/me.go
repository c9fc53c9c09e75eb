package auth

import (
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/db"
)

// Me returns the authenticated user's own profile.
func Me(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)

	var id, name, email, role, image string
	err := db.Conn.QueryRow(c.Request().Context(), `
		SELECT id::text, name, email, role, COALESCE(image, '')
		FROM users WHERE id = $1::uuid
	`, userID).Scan(&id, &name, &email, &role, &image)
	if err == pgx.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found."})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Something went wrong."})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user": echo.Map{
			"id":    id,
			"name":  name,
			"email": email,
			"role":  role,
			"image": image,
		},
	})
}

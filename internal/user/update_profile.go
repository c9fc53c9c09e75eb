package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/db"
)

// PATCH /user/profile
func UpdateProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Authentication required."})
	}

	var req struct {
		Name  *string `json:"name"`
		Image *string `json:"image"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request payload."})
	}

	if req.Name == nil && req.Image == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Nothing to update."})
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Name cannot be empty."})
		}
		if _, err := db.Conn.Exec(context.Background(),
			`UPDATE users SET name = $1 WHERE id = $2`, name, userID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to update profile."})
		}
	}

	if req.Image != nil {
		if _, err := db.Conn.Exec(context.Background(),
			`UPDATE users SET image = $1 WHERE id = $2`, strings.TrimSpace(*req.Image), userID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to update profile."})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Profile updated."})
}

package auth

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/db"
)

type BootstrapAdminRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// BootstrapAdmin promotes an existing user to admin, gated by a shared
// secret. Used once per deployment to create the first moderator.
func BootstrapAdmin(c echo.Context) error {
	req := new(BootstrapAdminRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request body."})
	}

	cfgSecret := os.Getenv("ADMIN_BOOTSTRAP_SECRET")
	if cfgSecret == "" {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Bootstrap disabled."})
	}
	if req.Secret == "" || req.Secret != cfgSecret {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Invalid secret."})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Email is required."})
	}

	ct, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE users SET role = 'admin' WHERE email = $1`, req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to promote user."})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found."})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User promoted to admin.", "email": req.Email})
}

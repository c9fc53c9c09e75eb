package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusshelf/campusshelf/internal/db"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ===== Login =====
func Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request body."})
	}

	var (
		userID   string
		password string
		role     string
		isActive bool
	)
	err := db.Conn.QueryRow(c.Request().Context(), `
        SELECT id::text, password, role, is_active FROM users WHERE email = $1
    `, strings.ToLower(strings.TrimSpace(req.Email))).Scan(&userID, &password, &role, &isActive)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid credentials."})
	}
	if !isActive {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Account suspended."})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid credentials."})
	}

	signed, err := signToken(userID, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Token generation failed."})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "token": signed})
}

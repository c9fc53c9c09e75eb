package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusshelf/campusshelf/internal/db"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ===== Signup =====
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request body."})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Name, email and a password of at least 6 characters are required."})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Something went wrong."})
	}

	// New accounts are always students; teacher and admin roles are granted
	// by an admin afterwards.
	var userID string
	err = db.Conn.QueryRow(c.Request().Context(), `
		INSERT INTO users (id, name, email, password, role)
		VALUES ($1, $2, $3, $4, 'student')
		RETURNING id::text
	`, uuid.New().String(), req.Name, req.Email, string(hashed)).Scan(&userID)
	if err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": "Email already in use."})
	}

	signed, err := signToken(userID, "student")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Token generation failed."})
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "token": signed})
}

package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusshelf/campusshelf/internal/db"
	"github.com/campusshelf/campusshelf/internal/notify"
)

// ResetNotifier delivers the reset link and the post-reset security notice.
type ResetNotifier interface {
	QueueToUser(userID string, p notify.Payload)
}

// PasswordReset holds the handlers for the token-based reset flow.
type PasswordReset struct {
	Notifier ResetNotifier
}

type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

const resetSentMessage = "If the email exists, a reset link has been sent."

// ===== POST /auth/password/request =====

// Request always answers with the same message to avoid user enumeration.
func (h *PasswordReset) Request(c echo.Context) error {
	req := new(RequestPasswordResetRequest)
	if err := c.Bind(req); err != nil || req.Email == "" {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": resetSentMessage})
	}

	var userID, name string
	err := db.Conn.QueryRow(c.Request().Context(),
		`SELECT id::text, name FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(req.Email))).Scan(&userID, &name)
	if err != nil || userID == "" {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": resetSentMessage})
	}

	expiry := 30 * time.Minute
	if v := os.Getenv("PASSWORD_RESET_EXP_MINUTES"); v != "" {
		if dur, parseErr := time.ParseDuration(v + "m"); parseErr == nil {
			expiry = dur
		}
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": "password_reset",
		"exp":     time.Now().Add(expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, signErr := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if signErr != nil {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": resetSentMessage})
	}

	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(base, "/"), url.QueryEscape(signed))

	if h.Notifier != nil {
		h.Notifier.QueueToUser(userID, notify.Payload{
			Title: "Password reset",
			Body:  "Tap to choose a new password. The link expires soon.",
			Data: map[string]string{
				"type":     "password_reset",
				"resetUrl": resetURL,
				"iconKey":  "general",
			},
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": resetSentMessage})
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ===== POST /auth/password/reset =====

func (h *PasswordReset) Reset(c echo.Context) error {
	req := new(ResetPasswordRequest)
	if err := c.Bind(req); err != nil || req.Token == "" || len(req.NewPassword) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request body."})
	}

	parsed, err := jwt.Parse(req.Token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !parsed.Valid {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid or expired token."})
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token claims."})
	}
	purpose, _ := claims["purpose"].(string)
	userID, _ := claims["user_id"].(string)
	if purpose != "password_reset" || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token."})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Something went wrong."})
	}

	ct, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE users SET password = $1 WHERE id = $2::uuid`, string(hashed), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to update password."})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found."})
	}

	if h.Notifier != nil {
		h.Notifier.QueueToUser(userID, notify.Payload{
			Title: "Password changed",
			Body:  "Your password was just changed. If this wasn't you, contact support.",
			Data:  map[string]string{"type": "security_alert", "iconKey": "general"},
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password updated successfully."})
}

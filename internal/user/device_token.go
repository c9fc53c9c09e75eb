package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/db"
)

// PUT /user/device-token
// Registers (or clears, with an empty token) the caller's push device token.
func RegisterDeviceToken(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Authentication required."})
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Invalid request payload."})
	}

	token := strings.TrimSpace(req.Token)
	var err error
	if token == "" {
		_, err = db.Conn.Exec(context.Background(),
			`UPDATE users SET fcm_token = NULL WHERE id = $1`, userID)
	} else {
		_, err = db.Conn.Exec(context.Background(),
			`UPDATE users SET fcm_token = $1 WHERE id = $2`, token, userID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to save device token."})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Device token saved."})
}

// TokenStore resolves a user's registered push token for the dispatcher.
type TokenStore struct {
	Pool *pgxpool.Pool
}

// DeviceToken returns "" (no error) when the user has no registered token.
func (s TokenStore) DeviceToken(ctx context.Context, userID string) (string, error) {
	var token *string
	err := s.Pool.QueryRow(ctx,
		`SELECT fcm_token FROM users WHERE id = $1`, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if token == nil {
		return "", nil
	}
	return *token, nil
}

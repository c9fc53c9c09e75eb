package admin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campusshelf/campusshelf/internal/db"
)

type AdminUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// GET /admin/users
func ListUsers(c echo.Context) error {
	rows, err := db.Conn.Query(c.Request().Context(), `
		SELECT id::text, name, email, role, is_active, created_at
		FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Could not fetch users."})
	}
	defer rows.Close()

	users := []AdminUser{}
	for rows.Next() {
		var u AdminUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to read user record."})
		}
		users = append(users, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": users})
}

// POST /admin/users/:id/suspend
func SuspendUser(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "User id is required."})
	}
	ct, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE users SET is_active = FALSE WHERE id = $1::uuid`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to suspend user."})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found."})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User suspended.", "user_id": userID})
}

// POST /admin/users/:id/activate
func ActivateUser(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "User id is required."})
	}
	ct, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE users SET is_active = TRUE WHERE id = $1::uuid`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to activate user."})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found."})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User activated.", "user_id": userID})
}

// POST /admin/users/:id/role
func SetUserRole(c echo.Context) error {
	userID := c.Param("id")

	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&body); err != nil ||
		(body.Role != "student" && body.Role != "teacher" && body.Role != "admin") {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "role must be student, teacher or admin."})
	}

	ct, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE users SET role = $1 WHERE id = $2::uuid`, body.Role, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "Failed to update role."})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "User not found."})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Role updated.", "user_id": userID, "role": body.Role})
}

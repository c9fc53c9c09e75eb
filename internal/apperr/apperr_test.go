package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(Validation("bad")))
	assert.Equal(t, http.StatusUnauthorized, Status(Unauthorized("nope")))
	assert.Equal(t, http.StatusForbidden, Status(Forbidden("nope")))
	assert.Equal(t, http.StatusNotFound, Status(NotFound("gone")))
	assert.Equal(t, http.StatusConflict, Status(Conflict("dup")))
	assert.Equal(t, http.StatusInternalServerError, Status(Internal("oops", errors.New("db down"))))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("plain")))
}

func TestInternalHidesCauseFromMessage(t *testing.T) {
	err := Internal("Failed to send request.", errors.New("connection refused"))
	assert.Equal(t, "Failed to send request.", err.Message)
	assert.ErrorContains(t, err, "connection refused")
	assert.ErrorContains(t, errors.Unwrap(err), "connection refused")
}

func TestJSONRendersMeta(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Conflict("You have already requested this book.").WithMeta("existingStatus", "requested")
	assert.NoError(t, JSON(c, err))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "You have already requested this book.", body["message"])
	assert.Equal(t, "requested", body["existingStatus"])
}

func TestJSONGenericForPlainErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, JSON(c, errors.New("pq: column does not exist")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Something went wrong.", body["message"])
	assert.NotContains(t, rec.Body.String(), "pq:")
}

package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondValidationError(rec, ErrCodeValidationFailed, "email is required", "email")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrCodeValidationFailed, body.Error)
	assert.Equal(t, "email", body.Field)
}

func TestRespondErrorWithDetailsOmitsEmptyField(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithDetails(rec, http.StatusLocked, ErrCodeSessionShutdown, "session is shut down", map[string]interface{}{
		"exam_id": "e1",
	})

	assert.Equal(t, http.StatusLocked, rec.Code)

	var raw map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.NotContains(t, raw, "field")
	assert.Equal(t, map[string]interface{}{"exam_id": "e1"}, raw["details"])
}

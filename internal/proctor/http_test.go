package proctor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/auth/jwt"
	"github.com/gokatarajesh/exam-proctor/internal/db/repository"
)

func controlMux(f *serviceFixture) *http.ServeMux {
	h := NewHTTPHandlers(f.svc, zerolog.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/instructors/students/{studentId}/shutdown", h.Shutdown)
	mux.HandleFunc("POST /api/instructors/students/{studentId}/poweron", h.PowerOn)
	mux.HandleFunc("GET /api/students/me/sessions/{examId}", h.MySession)
	return mux
}

func call(mux http.Handler, claims *jwt.Claims, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestControlEndpoints_ShutdownAndPowerOn(t *testing.T) {
	f := newServiceFixture()
	mux := controlMux(f)
	instructor := &jwt.Claims{UserID: f.proctor, Role: auth.RoleInstructor}

	body := `{"examId":"` + f.exam.String() + `","instructorId":"` + f.proctor.String() + `"}`
	rec, out := call(mux, instructor, http.MethodPost, "/api/instructors/students/"+f.student.String()+"/shutdown", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	session := out["session"].(map[string]interface{})
	assert.Equal(t, "shutdown", session["status"])

	rec, out = call(mux, instructor, http.MethodPost, "/api/instructors/students/"+f.student.String()+"/poweron", `{"examId":"`+f.exam.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "active", out["session"].(map[string]interface{})["status"])

	student := &jwt.Claims{UserID: f.student, Role: auth.RoleStudent}
	rec, out = call(mux, student, http.MethodGet, "/api/students/me/sessions/"+f.exam.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", out["status"])
}

func TestControlEndpoints_Errors(t *testing.T) {
	f := newServiceFixture()
	mux := controlMux(f)
	instructor := &jwt.Claims{UserID: f.proctor, Role: auth.RoleInstructor}
	exam := f.exam.String()

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad student id", "/api/instructors/students/abc/shutdown", `{"examId":"` + exam + `"}`, http.StatusBadRequest, "invalid_id"},
		{"missing exam id", "/api/instructors/students/" + f.student.String() + "/shutdown", `{}`, http.StatusBadRequest, "invalid_id"},
		{"bad json", "/api/instructors/students/" + f.student.String() + "/shutdown", `{`, http.StatusBadRequest, "invalid_request"},
		{"someone else's id", "/api/instructors/students/" + f.student.String() + "/shutdown", `{"examId":"` + exam + `","instructorId":"` + uuid.NewString() + `"}`, http.StatusForbidden, "instructor_mismatch"},
		{"unknown student", "/api/instructors/students/" + uuid.NewString() + "/poweron", `{"examId":"` + exam + `"}`, http.StatusNotFound, "student_not_found"},
		{"unknown exam", "/api/instructors/students/" + f.student.String() + "/shutdown", `{"examId":"` + uuid.NewString() + `"}`, http.StatusNotFound, "exam_not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := call(mux, instructor, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tc.code, out["error"])
		})
	}
	assert.Zero(t, f.audit.count())
}

func TestControlEndpoints_ExamGoneAtInsert(t *testing.T) {
	f := newServiceFixture()
	f.audit.err = fmt.Errorf("%w: session_events_exam_id_fkey", repository.ErrMissingReference)
	instructor := &jwt.Claims{UserID: f.proctor, Role: auth.RoleInstructor}

	rec, out := call(controlMux(f), instructor, http.MethodPost,
		"/api/instructors/students/"+f.student.String()+"/shutdown", `{"examId":"`+f.exam.String()+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "exam_not_found", out["error"])
	assert.Equal(t, false, out["success"])
}

package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-teammate/google-signin/internal/middleware"
)

// ─── helpers ──────────────────────────────────────────────────────────────────

func panicking(v any) http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(v)
	})
}

func serveRecovered(t *testing.T, next http.Handler) (*httptest.ResponseRecorder, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	rec := httptest.NewRecorder()
	middleware.Recover(log)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	return rec, hook
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

// ─── Recover tests ────────────────────────────────────────────────────────────

func TestRecover_PassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec, hook := serveRecovered(t, next)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, hook.AllEntries())
}

func TestRecover_ErrorPanic(t *testing.T) {
	rec, hook := serveRecovered(t, panicking(errors.New("directory exploded")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "directory exploded", decodeError(t, rec))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRecover_StringPanic(t *testing.T) {
	rec, _ := serveRecovered(t, panicking("nil map write"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "nil map write", decodeError(t, rec))
}

func TestRecover_UnknownValue(t *testing.T) {
	rec, _ := serveRecovered(t, panicking(42))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Unknown error", decodeError(t, rec))
}

func TestRecover_EmptyMessage(t *testing.T) {
	rec, _ := serveRecovered(t, panicking(errors.New("")))

	assert.Equal(t, "Unknown error", decodeError(t, rec))
}

func TestRecover_AbortHandlerRepanics(t *testing.T) {
	log, _ := test.NewNullLogger()
	h := middleware.Recover(log)(panicking(http.ErrAbortHandler))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

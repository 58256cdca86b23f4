package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store) http.Handler {
	h := NewHandler(store)
	r := chi.NewRouter()
	r.Route("/sessions/{telegramId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/message", h.SetMessage)
		r.Put("/custom-tone", h.SetCustomTone)
		r.Delete("/", h.Clear)
	})
	return r
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandler_RoundTrip(t *testing.T) {
	router := newTestRouter(NewMemoryStore())

	rec := do(router, http.MethodGet, "/sessions/5/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"message":null,"awaitingCustomTone":false}}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodPut, "/sessions/5/message", `{"text":"hi there"}`).Code)
	assert.Equal(t, http.StatusNoContent, do(router, http.MethodPut, "/sessions/5/custom-tone", `{"awaiting":true}`).Code)

	rec = do(router, http.MethodGet, "/sessions/5/", "")
	assert.JSONEq(t, `{"data":{"message":"hi there","awaitingCustomTone":true}}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/sessions/5/", "").Code)
	rec = do(router, http.MethodGet, "/sessions/5/", "")
	assert.JSONEq(t, `{"data":{"message":null,"awaitingCustomTone":false}}`, rec.Body.String())
}

func TestHandler_SetMessageValidation(t *testing.T) {
	router := newTestRouter(NewMemoryStore())

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPut, "/sessions/5/message", `{"text":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPut, "/sessions/5/message", `nope`).Code)
}

package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/plexlist/internal/shared"
)

type pingHandler struct{}

func (pingHandler) Routes() []string { return []string{"GET /ping", "HEAD /ping"} }

func (pingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware runs in the order it was added", func(t *testing.T) {
		r := NewBasicRouter()
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, req)
				})
			}
		}
		r.Use(tag("first"), tag("second"))
		r.HandleFunc(http.MethodGet, "/x", func(w http.ResponseWriter, req *http.Request) {
			order = append(order, "handler")
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("registers every route of a handler", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(pingHandler{})

		for _, method := range []string{http.MethodGet, http.MethodHead} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(method, "/ping", nil))
			if rec.Code != http.StatusTeapot {
				t.Errorf("%s /ping: expected 418, got %d", method, rec.Code)
			}
		}

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST /ping: expected 405, got %d", rec.Code)
		}
	})

	t.Run("path values reach the handler", func(t *testing.T) {
		r := NewBasicRouter()
		var got string
		r.HandleFunc(http.MethodGet, "/items/{id}", func(w http.ResponseWriter, req *http.Request) {
			got = req.PathValue("id")
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/abc", nil))
		if got != "abc" {
			t.Errorf("expected id abc, got %q", got)
		}
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)

	r := NewBasicRouter()
	r.Use(Logging(logger))
	r.HandleFunc(http.MethodGet, "/boom", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	out := buf.String()
	if !strings.Contains(out, "500") || !strings.Contains(out, "/boom") {
		t.Errorf("expected status and path in log output, got %q", out)
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := newStatusRecorder(rec)

	sr.WriteHeader(http.StatusNotFound)
	sr.WriteHeader(http.StatusOK)
	if sr.status != http.StatusNotFound {
		t.Errorf("expected first status to stick, got %d", sr.status)
	}

	fresh := newStatusRecorder(httptest.NewRecorder())
	fresh.Write([]byte("ok"))
	if fresh.status != http.StatusOK {
		t.Errorf("expected implicit 200, got %d", fresh.status)
	}
}

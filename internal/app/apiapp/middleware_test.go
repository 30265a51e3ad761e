package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/infra/metrics"
)

func TestRequestLoggerCountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	ApplyMiddlewares(r, zap.NewNop(), time.Second)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusTeapot)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected both ids under one route label, got %v", got)
	}
}

func TestRequestLoggerDefaultsStatusToOK(t *testing.T) {
	r := chi.NewRouter()
	ApplyMiddlewares(r, nil, 0)
	r.Get("/implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/implicit", "200")
	before := testutil.ToFloat64(counter)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/implicit", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected one 200 observation, got %v", got)
	}
}

func TestMiddlewaresRecoverPanics(t *testing.T) {
	r := chi.NewRouter()
	ApplyMiddlewares(r, zap.NewNop(), time.Second)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestMiddlewaresSetRequestDeadline(t *testing.T) {
	r := chi.NewRouter()
	ApplyMiddlewares(r, zap.NewNop(), time.Second)
	r.Get("/deadline", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); !ok {
			t.Errorf("request context has no deadline")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/deadline", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

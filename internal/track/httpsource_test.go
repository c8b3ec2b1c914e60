package track

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/trackrecord/internal/model"
)

func TestHTTPSource_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("reference") != "price:BTC-USD" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("as_of") == "" {
			t.Error("as_of parameter missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"numeric": 210000}`))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, srv.Client())
	value, err := source.Query(context.Background(), "price:BTC-USD", testNow)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if value.Numeric == nil || *value.Numeric != 210000 {
		t.Errorf("numeric = %v, want 210000", value.Numeric)
	}

	// Unknown reference: empty observation, no error.
	value, err = source.Query(context.Background(), "price:UNKNOWN", testNow)
	if err != nil {
		t.Fatalf("unknown reference: %v", err)
	}
	if value.Numeric != nil {
		t.Errorf("expected empty observation, got %v", *value.Numeric)
	}
}

func TestHTTPSource_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, srv.Client())
	_, err := source.Query(context.Background(), "price:BTC-USD", testNow)
	if !errors.Is(err, model.ErrDataSourceUnavailable) {
		t.Errorf("err = %v, want ErrDataSourceUnavailable", err)
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	source := NewHTTPSource("http://127.0.0.1:1", nil)
	_, err := source.Query(context.Background(), "price:BTC-USD", testNow)
	if !errors.Is(err, model.ErrDataSourceUnavailable) {
		t.Errorf("err = %v, want ErrDataSourceUnavailable", err)
	}
}

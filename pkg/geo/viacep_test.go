package geo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	infraGeo "github.com/felixgeelhaar/buraco/pkg/geo"
)

const paulista = `{
  "cep": "01310-100",
  "logradouro": "Avenida Paulista",
  "complemento": "de 612 a 1510 - lado par",
  "bairro": "Bela Vista",
  "localidade": "São Paulo",
  "uf": "SP",
  "ibge": "3550308"
}`

func TestViaCEP_LookupAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/01310100/json/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(paulista))
	}))
	defer server.Close()

	v := infraGeo.NewViaCEP(infraGeo.WithBaseURL(server.URL), infraGeo.WithHTTPClient(server.Client()))
	addr, err := v.LookupAddress(context.Background(), "01310-100")
	if err != nil {
		t.Fatalf("LookupAddress: %v", err)
	}
	want := geo.Address{CEP: "01310100", Street: "Avenida Paulista", District: "Bela Vista", City: "São Paulo", State: "SP"}
	if addr != want {
		t.Errorf("got %+v, want %+v", addr, want)
	}
}

func TestViaCEP_NotFoundShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"erro bool", http.StatusOK, `{"erro": true}`},
		{"erro string", http.StatusOK, `{"erro": "true"}`},
		{"bad request", http.StatusBadRequest, `<html>Bad Request</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			v := infraGeo.NewViaCEP(infraGeo.WithBaseURL(server.URL), infraGeo.WithHTTPClient(server.Client()))
			_, err := v.LookupAddress(context.Background(), "99999999")
			if !errors.Is(err, geo.ErrAddressNotFound) {
				t.Errorf("expected ErrAddressNotFound, got %v", err)
			}
		})
	}
}

func TestViaCEP_MalformedCodeSkipsNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	v := infraGeo.NewViaCEP(infraGeo.WithBaseURL(server.URL), infraGeo.WithHTTPClient(server.Client()))
	for _, code := range []string{"123", "abcdefgh", ""} {
		if _, err := v.LookupAddress(context.Background(), code); !errors.Is(err, geo.ErrAddressNotFound) {
			t.Errorf("LookupAddress(%q): expected ErrAddressNotFound, got %v", code, err)
		}
	}
	if hits != 0 {
		t.Errorf("malformed codes reached the server %d times", hits)
	}
}

func TestViaCEP_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(paulista))
	}))
	defer server.Close()

	v := infraGeo.NewViaCEP(
		infraGeo.WithBaseURL(server.URL),
		infraGeo.WithHTTPClient(server.Client()),
		infraGeo.WithRetry(3, time.Millisecond),
	)
	if _, err := v.LookupAddress(context.Background(), "01310100"); err != nil {
		t.Fatalf("LookupAddress: %v", err)
	}
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
}

func TestViaCEP_UpstreamDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	v := infraGeo.NewViaCEP(
		infraGeo.WithBaseURL(server.URL),
		infraGeo.WithHTTPClient(server.Client()),
		infraGeo.WithRetry(2, time.Millisecond),
	)
	_, err := v.LookupAddress(context.Background(), "01310100")
	if !errors.Is(err, geo.ErrLookupFailed) {
		t.Errorf("expected ErrLookupFailed, got %v", err)
	}
}

func TestViaCEP_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	v := infraGeo.NewViaCEP(infraGeo.WithBaseURL(server.URL), infraGeo.WithHTTPClient(server.Client()))
	if _, err := v.LookupAddress(context.Background(), "01310100"); !errors.Is(err, geo.ErrLookupFailed) {
		t.Errorf("expected ErrLookupFailed, got %v", err)
	}
}

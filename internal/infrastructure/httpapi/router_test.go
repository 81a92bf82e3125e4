package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/httpapi"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/storage"
	infraAI "github.com/felixgeelhaar/buraco/pkg/ai"
	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

const criticalAnswer = "AVALIAÇÃO DE SEVERIDADE:\n- Nível: [CRÍTICO]"

type stubAddresses struct{}

func (stubAddresses) LookupAddress(_ context.Context, cep string) (geo.Address, error) {
	digits, err := geo.NormalizeCEP(cep)
	if err != nil {
		return geo.Address{}, err
	}
	if digits == "00000000" {
		return geo.Address{}, fmt.Errorf("%w: %s", geo.ErrAddressNotFound, digits)
	}
	return geo.Address{CEP: digits, Street: "Rua XV de Novembro", City: "Curitiba", State: "PR"}, nil
}

type recordingSink struct{ docs []report.Document }

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, doc report.Document) (string, error) {
	s.docs = append(s.docs, doc)
	return "ref-1", nil
}

type testAPI struct {
	router   *gin.Engine
	provider *infraAI.MockProvider
	sink     *recordingSink
}

func newTestAPI(t *testing.T, aiKey string) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	provider := &infraAI.MockProvider{Text: criticalAnswer}
	intake := application.NewIntakeService(
		storage.NewMemorySessionStore(0),
		application.NewPipeline(analysis.NewClient(func(string) ai.Provider { return provider })),
		stubAddresses{},
		application.Credentials{AIKey: aiKey},
	)
	sink := &recordingSink{}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Intake:    intake,
		Addresses: stubAddresses{},
		Dispatch:  application.NewDispatchService(nil, sink),
	})
	return &testAPI{router: router, provider: provider, sink: sink}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(t *testing.T, id string, photo []byte, override string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "buraco.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(photo)
	if override != "" {
		_ = mw.WriteField("override", override)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// sessionOnForm creates a session and moves it to the form step.
func (a *testAPI) sessionOnForm(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var s struct {
		ID   string `json:"id"`
		Step string `json:"step"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &s)
	if s.Step != "start" {
		t.Fatalf("new session step = %q", s.Step)
	}
	if rec := a.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/advance", nil); rec.Code != http.StatusOK {
		t.Fatalf("advance: %d %s", rec.Code, rec.Body)
	}
	return s.ID
}

func photo(t *testing.T, w, h, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 80, B: 70, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() > size {
		t.Fatalf("png is %d bytes, want at most %d", buf.Len(), size)
	}
	return append(buf.Bytes(), make([]byte, size-buf.Len())...)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env httpapi.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body)
	}
	return env.Error.Code
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t, "k")
	rec := api.do(t, http.MethodGet, "/healthcheck", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthcheck = %d %q", rec.Code, rec.Body)
	}
}

func TestAPI_FullFlow(t *testing.T) {
	api := newTestAPI(t, "k")
	id := api.sessionOnForm(t)

	rec := api.do(t, http.MethodPost, "/api/sessions/"+id+"/address", map[string]string{"cep": "80020-310", "number": "50"})
	if rec.Code != http.StatusOK {
		t.Fatalf("address: %d %s", rec.Code, rec.Body)
	}

	rec = api.upload(t, id, photo(t, 640, 480, 30000), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("photo: %d %s", rec.Code, rec.Body)
	}
	var res struct {
		Session struct {
			Step string `json:"step"`
		} `json:"session"`
		Outcome struct {
			Severity string `json:"severity"`
		} `json:"outcome"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Session.Step != "result" || res.Outcome.Severity != "CRÍTICO" {
		t.Errorf("photo result = %+v", res)
	}

	rec = api.do(t, http.MethodGet, "/api/sessions/"+id+"/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: %d %s", rec.Code, rec.Body)
	}
	doc, err := report.ParseDocument(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.Level != "critical" || doc.Location == nil || doc.Location.Address.City != "Curitiba" {
		t.Errorf("document = %+v", doc)
	}

	rec = api.do(t, http.MethodGet, "/api/sessions/"+id+"/report?format=yaml", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "level: critical") {
		t.Errorf("yaml report = %d %s", rec.Code, rec.Body)
	}

	rec = api.do(t, http.MethodPost, "/api/sessions/"+id+"/dispatch", nil)
	if rec.Code != http.StatusOK || len(api.sink.docs) != 1 {
		t.Errorf("dispatch = %d %s", rec.Code, rec.Body)
	}

	if rec := api.do(t, http.MethodDelete, "/api/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/api/sessions/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", rec.Code)
	}
}

func TestAPI_GateFailureParksPhoto(t *testing.T) {
	api := newTestAPI(t, "k")
	id := api.sessionOnForm(t)

	rec := api.upload(t, id, photo(t, 120, 90, 4000), "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("photo = %d %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"awaiting_confirmation":true`) {
		t.Errorf("body = %s", rec.Body)
	}
	if api.provider.Calls() != 0 {
		t.Fatal("model must not be called before confirmation")
	}

	rec = api.do(t, http.MethodPost, "/api/sessions/"+id+"/photo/confirm", map[string]bool{"continue": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm = %d %s", rec.Code, rec.Body)
	}
	if api.provider.Calls() != 1 {
		t.Errorf("calls = %d, want 1", api.provider.Calls())
	}

	rec = api.do(t, http.MethodPost, "/api/sessions/"+id+"/photo/confirm", map[string]bool{"continue": false})
	if rec.Code != http.StatusConflict {
		t.Errorf("second confirm = %d, want 409", rec.Code)
	}
}

func TestAPI_OverrideSkipsConfirmation(t *testing.T) {
	api := newTestAPI(t, "k")
	id := api.sessionOnForm(t)

	rec := api.upload(t, id, photo(t, 120, 90, 4000), "true")
	if rec.Code != http.StatusOK {
		t.Fatalf("photo = %d %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"overridden":true`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestAPI_Errors(t *testing.T) {
	api := newTestAPI(t, "k")
	id := api.sessionOnForm(t)

	tests := []struct {
		name   string
		rec    func() *httptest.ResponseRecorder
		status int
		code   string
	}{
		{"unknown session", func() *httptest.ResponseRecorder {
			return api.do(t, http.MethodPost, "/api/sessions/nope/advance", nil)
		}, http.StatusNotFound, "session_not_found"},
		{"unknown cep", func() *httptest.ResponseRecorder {
			return api.do(t, http.MethodPost, "/api/sessions/"+id+"/address", map[string]string{"cep": "00000-000"})
		}, http.StatusNotFound, "address_not_found"},
		{"missing cep", func() *httptest.ResponseRecorder {
			return api.do(t, http.MethodPost, "/api/sessions/"+id+"/address", map[string]string{})
		}, http.StatusBadRequest, "invalid_request"},
		{"missing continue", func() *httptest.ResponseRecorder {
			return api.do(t, http.MethodPost, "/api/sessions/"+id+"/photo/confirm", map[string]string{})
		}, http.StatusBadRequest, "invalid_request"},
		{"nothing pending", func() *httptest.ResponseRecorder {
			return api.do(t, http.MethodPost, "/api/sessions/"+id+"/photo/confirm", map[string]bool{"continue": true})
		}, http.StatusConflict, "no_pending_image"},
		{"bad override", func() *httptest.ResponseRecorder {
			return api.upload(t, id, photo(t, 640, 480, 30000), "maybe")
		}, http.StatusBadRequest, "invalid_request"},
		{"no photo field", func() *httptest.ResponseRecorder {
			return api.do(t, http.MethodPost, "/api/sessions/"+id+"/photo", nil)
		}, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec()
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestAPI_WrongStep(t *testing.T) {
	api := newTestAPI(t, "k")
	rec := api.do(t, http.MethodPost, "/api/sessions", nil)
	var s struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &s)

	rec = api.upload(t, s.ID, photo(t, 640, 480, 30000), "")
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "wrong_step" {
		t.Errorf("photo on start = %d %s", rec.Code, rec.Body)
	}
}

func TestAPI_MissingAPIKey(t *testing.T) {
	api := newTestAPI(t, "")
	id := api.sessionOnForm(t)

	rec := api.upload(t, id, photo(t, 640, 480, 30000), "")
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != "missing_api_key" {
		t.Errorf("photo without key = %d %s", rec.Code, rec.Body)
	}
}

func TestAPI_LookupCEP(t *testing.T) {
	api := newTestAPI(t, "k")
	rec := api.do(t, http.MethodGet, "/api/lookup/cep/80020310", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"city":"Curitiba"`) {
		t.Errorf("lookup = %d %s", rec.Code, rec.Body)
	}
	rec = api.do(t, http.MethodGet, "/api/lookup/cep/123", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("malformed cep = %d", rec.Code)
	}
}

func TestAPI_EventsUnknownSession(t *testing.T) {
	api := newTestAPI(t, "k")
	rec := api.do(t, http.MethodGet, "/api/sessions/nope/events", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("events = %d", rec.Code)
	}
}

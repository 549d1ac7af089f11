package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomjnixon/mk2go/internal/config"
	"github.com/tomjnixon/mk2go/internal/frames"
)

func testService() *Service {
	cfg := config.Default()
	cfg.Device.Path = "/dev/null"
	return NewService(cfg, zerolog.Nop())
}

func get(t *testing.T, svc *Service, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	svc.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := get(t, testService(), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "mk2mon" {
		t.Errorf("body = %v", body)
	}
}

func TestStatusEndpointServesCachedSnapshot(t *testing.T) {
	svc := testService()
	svc.mu.Lock()
	svc.status = Status{
		UpdatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Version:   "04332211",
		DC:        &DCView{Voltage: 25.24, ChargerCurrent: 1},
		LEDs:      map[string]string{"bulk": "on"},
	}
	svc.mu.Unlock()

	w := get(t, svc, "/v1/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body Status
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Version != "04332211" || body.DC == nil || body.DC.Voltage != 25.24 {
		t.Errorf("body = %+v", body)
	}
	if body.LEDs["bulk"] != "on" {
		t.Errorf("leds = %v", body.LEDs)
	}
}

func TestVariableCatalogEndpoint(t *testing.T) {
	w := get(t, testService(), "/v1/variables")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Name == "i_bat" {
			found = true
			if e.ID != 5 || e.Unit != "A" || e.Scale != 0.005 {
				t.Errorf("i_bat entry = %+v", e)
			}
		}
	}
	if !found {
		t.Error("catalog is missing i_bat")
	}
}

func TestUnknownVariableIs404(t *testing.T) {
	w := get(t, testService(), "/v1/variables/no_such_thing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestStateNames(t *testing.T) {
	if got := StateName(frames.StateCharge); got != "charge" {
		t.Errorf("StateName(charge) = %q", got)
	}
	if got := StateName(frames.MainState(0xAA)); got != "unknown" {
		t.Errorf("StateName(bogus) = %q", got)
	}
}

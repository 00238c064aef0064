package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pthm-cable/golem/config"
	"github.com/pthm-cable/golem/population"
	"github.com/pthm-cable/golem/rival"
	"github.com/pthm-cable/golem/session"
	"github.com/pthm-cable/golem/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedResolver struct {
	value  float64
	source rival.Source
}

func (f fixedResolver) Resolve(phase float64) (float64, rival.Source) {
	return f.value, f.source
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	model, err := population.FromConfig(cfg)
	if err != nil {
		t.Fatalf("population.FromConfig: %v", err)
	}

	st := store.NewMemoryStore()
	sess, err := session.New(session.Options{
		Model:     model,
		Resolver:  fixedResolver{value: 800, source: rival.SourceLive},
		Store:     st,
		Clock:     func() time.Time { return time.Unix(1700000000, 0) },
		RivalName: cfg.Simulation.Rival,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	server := New(cfg, sess, st)
	return server, server.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, wantStatus int) map[string]any {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)

	if w.Code != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d; body: %s", method, path, w.Code, wantStatus, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: decoding body: %v", method, path, err)
	}
	return body
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t)

	body := doJSON(t, router, http.MethodGet, "/health", http.StatusOK)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["history_len"] != float64(0) {
		t.Errorf("history_len = %v, want 0", body["history_len"])
	}
}

func TestPeerEndpoints(t *testing.T) {
	_, router := newTestServer(t)

	for _, path := range []string{"/taille", "/population/taille"} {
		body := doJSON(t, router, http.MethodGet, path, http.StatusOK)
		if body["taille"] != float64(100) {
			t.Errorf("%s: taille = %v, want seed 100", path, body["taille"])
		}
		if body["species"] != "Golem" {
			t.Errorf("%s: species = %v, want Golem", path, body["species"])
		}
	}

	body := doJSON(t, router, http.MethodGet, "/taux_de_croissance", http.StatusOK)
	if body["taux_de_croissance"] != 0.5 {
		t.Errorf("taux_de_croissance = %v, want 0.5", body["taux_de_croissance"])
	}

	body = doJSON(t, router, http.MethodGet, "/taux_de_competition", http.StatusOK)
	if body["taux_de_competition"] != 0.2 {
		t.Errorf("taux_de_competition = %v, want 0.2", body["taux_de_competition"])
	}
	if body["species_i"] != "Golem" || body["species_j"] != "Vampire" {
		t.Errorf("species pair = %v/%v, want Golem/Vampire", body["species_i"], body["species_j"])
	}
}

func TestStepStateHistoryResetRoundTrip(t *testing.T) {
	_, router := newTestServer(t)

	// Step twice.
	body := doJSON(t, router, http.MethodPost, "/simulation/step", http.StatusOK)
	if body["tick"] != float64(1) {
		t.Errorf("first step tick = %v, want 1", body["tick"])
	}
	pops, ok := body["populations"].(map[string]any)
	if !ok {
		t.Fatalf("populations missing from step record: %v", body)
	}
	// Seed Golem 100 vs resolved Vampire 800 at alpha 0.2:
	// (100 + 0.2*800)/1000 = 0.26 -> 100 * (1 + 0.5*0.74) = 137.0
	if got := pops["Golem"].(float64); math.Abs(got-137.0) > 1e-9 {
		t.Errorf("Golem after step = %v, want 137.0", got)
	}
	if body["rival_source"] != "LIVE" {
		t.Errorf("rival_source = %v, want LIVE", body["rival_source"])
	}
	doJSON(t, router, http.MethodPost, "/simulation/step", http.StatusOK)

	// State reflects the last step.
	body = doJSON(t, router, http.MethodGet, "/simulation/state", http.StatusOK)
	if body["tick"] != float64(2) {
		t.Errorf("state tick = %v, want 2", body["tick"])
	}

	// History holds both records in order.
	body = doJSON(t, router, http.MethodGet, "/simulation/history", http.StatusOK)
	if body["total_steps"] != float64(2) {
		t.Errorf("total_steps = %v, want 2", body["total_steps"])
	}
	history, ok := body["history"].([]any)
	if !ok || len(history) != 2 {
		t.Fatalf("history = %v, want 2 records", body["history"])
	}
	first := history[0].(map[string]any)
	if first["tick"] != float64(1) {
		t.Errorf("first record tick = %v, want 1", first["tick"])
	}

	// Reset restores seed state.
	body = doJSON(t, router, http.MethodPost, "/simulation/reset", http.StatusOK)
	if body["success"] != true {
		t.Errorf("reset success = %v, want true", body["success"])
	}
	body = doJSON(t, router, http.MethodGet, "/simulation/state", http.StatusOK)
	if body["tick"] != float64(0) {
		t.Errorf("tick after reset = %v, want 0", body["tick"])
	}
	body = doJSON(t, router, http.MethodGet, "/simulation/history", http.StatusOK)
	if body["total_steps"] != float64(0) {
		t.Errorf("total_steps after reset = %v, want 0", body["total_steps"])
	}
}

func TestDatabaseStats(t *testing.T) {
	_, router := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/simulation/step", http.StatusOK)

	body := doJSON(t, router, http.MethodGet, "/database/stats", http.StatusOK)
	if body["records"] != float64(1) {
		t.Errorf("records = %v, want 1", body["records"])
	}
}

func TestSimulationStats(t *testing.T) {
	_, router := newTestServer(t)

	for i := 0; i < 3; i++ {
		doJSON(t, router, http.MethodPost, "/simulation/step", http.StatusOK)
	}

	body := doJSON(t, router, http.MethodGet, "/simulation/stats", http.StatusOK)
	golem, ok := body["Golem"].(map[string]any)
	if !ok {
		t.Fatalf("no Golem stats: %v", body)
	}
	for _, key := range []string{"min", "max", "mean", "stddev"} {
		if _, ok := golem[key]; !ok {
			t.Errorf("Golem stats missing %q: %v", key, golem)
		}
	}
	if golem["min"].(float64) > golem["max"].(float64) {
		t.Errorf("min %v > max %v", golem["min"], golem["max"])
	}
}

func TestExportCSV(t *testing.T) {
	_, router := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/simulation/step", http.StatusOK)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/simulation/export", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	// Header + 1 tick x 2 species (Golem + Vampire).
	if len(lines) != 3 {
		t.Fatalf("got %d CSV lines, want 3:\n%s", len(lines), w.Body.String())
	}
	if !strings.Contains(lines[0], "tick") {
		t.Errorf("first line is not a header: %q", lines[0])
	}
}

// Package rival obtains the rival population's current size. It prefers a
// live fetch from the rival service and falls back to a deterministic
// periodic surrogate when the service is unreachable or reports an invalid
// value, tagging every result with the path that produced it.
package rival

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/pthm-cable/golem/config"
)

// Source tags which resolution path produced a rival value.
type Source string

const (
	// SourceLive means the value came from the rival service.
	SourceLive Source = "LIVE"
	// SourceFallback means the value is the local surrogate.
	SourceFallback Source = "FALLBACK"
)

// HTTPClient interface allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver fetches the rival size with a bounded single attempt per call.
// It holds no simulation state; the `last` field only tracks source
// transitions for logging.
type Resolver struct {
	url       string
	field     string
	threshold float64
	capacity  float64
	client    HTTPClient

	last Source
}

// New builds a resolver from the rival config section. The real HTTP client
// is bounded by the configured timeout, so a resolve call can never block
// past it.
func New(cfg *config.Config) *Resolver {
	return &Resolver{
		url:       cfg.Rival.URL,
		field:     cfg.Rival.Field,
		threshold: cfg.Rival.Threshold,
		capacity:  cfg.Rival.CarryingCapacity,
		client:    &http.Client{Timeout: Timeout(cfg.Derived.RivalTimeout)},
		last:      SourceFallback,
	}
}

// WithClient replaces the HTTP client. Tests use this to inject fakes.
func (r *Resolver) WithClient(c HTTPClient) *Resolver {
	r.client = c
	return r
}

// Resolve returns the rival's current size and the path that produced it.
// Exactly one network attempt is made per call; retry policy, if any,
// belongs to the caller across steps. Every failure degrades to the
// surrogate, so the caller always receives a usable non-negative value.
func (r *Resolver) Resolve(phase float64) (float64, Source) {
	value, err := r.fetch()
	if err != nil {
		slog.Debug("rival fetch failed", "url", r.url, "error", err)
		return r.tag(r.Surrogate(phase), SourceFallback)
	}
	return r.tag(value, SourceLive)
}

// tag records source transitions so an operator can see the service drop
// out and come back without reading per-step debug logs.
func (r *Resolver) tag(value float64, source Source) (float64, Source) {
	if source != r.last {
		slog.Info("rival source changed", "from", r.last, "to", source)
		r.last = source
	}
	return value, source
}

// fetch performs the single live attempt.
func (r *Resolver) fetch() (float64, error) {
	req, err := http.NewRequest(http.MethodGet, r.url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling rival service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rival service returned status %s", resp.Status)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding rival payload: %w", err)
	}

	value, ok := extract(payload[r.field])
	if !ok {
		return 0, fmt.Errorf("payload field %q missing or non-numeric", r.field)
	}
	if value <= r.threshold {
		return 0, fmt.Errorf("value %v at or below validity threshold %v", value, r.threshold)
	}
	return value, nil
}

// extract pulls a float out of a decoded JSON value. Arrays contribute
// their first element; anything non-numeric (including string-encoded
// numbers) is rejected.
func extract(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case []any:
		if len(t) == 0 {
			return 0, false
		}
		return extract(t[0])
	default:
		return 0, false
	}
}

// Surrogate is the deterministic fallback: a shifted cosine oscillating
// within [0, capacity], so the simulation never diverges or goes negative
// while the rival service is offline.
func (r *Resolver) Surrogate(phase float64) float64 {
	return 0.5 * r.capacity * (1.0 + math.Cos(phase*0.1))
}

// Timeout returns a resolver timeout clamped into the supported window.
// Config values outside it are a misconfiguration the resolver corrects
// rather than rejects.
func Timeout(d time.Duration) time.Duration {
	const (
		minTimeout = 500 * time.Millisecond
		maxTimeout = 2 * time.Second
	)
	if d < minTimeout {
		return minTimeout
	}
	if d > maxTimeout {
		return maxTimeout
	}
	return d
}

// Native dashboard for the golem population service. Polls the API for
// state, history, and summary statistics; draws a live chart; and drives
// the simulation with step/reset buttons.
//
// Usage: go run ./cmd/dashboard [-api http://127.0.0.1:16050]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	windowWidth  = 1000
	windowHeight = 640
	chartX       = 20
	chartY       = 90
	chartWidth   = 640
	chartHeight  = 420
	panelX       = chartX + chartWidth + 20
	panelWidth   = windowWidth - panelX - 20
)

var seriesColors = []rl.Color{rl.SkyBlue, rl.Orange, rl.Lime, rl.Pink}

type stateResponse struct {
	Tick        int                `json:"tick"`
	Populations map[string]float64 `json:"populations"`
	RivalSource string             `json:"rival_source"`
}

type stepRecord struct {
	Tick        int                `json:"tick"`
	Populations map[string]float64 `json:"populations"`
}

type historyResponse struct {
	History    []stepRecord `json:"history"`
	TotalSteps int          `json:"total_steps"`
}

type speciesStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// client polls the service and caches the latest view for the draw loop.
type client struct {
	base string
	http *http.Client

	mu      sync.Mutex
	state   stateResponse
	history []stepRecord
	stats   map[string]speciesStats
	online  bool
	busy    bool
}

func newClient(base string) *client {
	return &client{
		base: base,
		http: &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *client) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// refresh pulls state, history, and stats in one pass.
func (c *client) refresh() {
	var state stateResponse
	if err := c.getJSON("/simulation/state", &state); err != nil {
		slog.Warn("state poll failed", "error", err)
		c.mu.Lock()
		c.online = false
		c.mu.Unlock()
		return
	}

	var history historyResponse
	if err := c.getJSON("/simulation/history", &history); err != nil {
		slog.Warn("history poll failed", "error", err)
		return
	}

	stats := make(map[string]speciesStats)
	if err := c.getJSON("/simulation/stats", &stats); err != nil {
		slog.Warn("stats poll failed", "error", err)
	}

	c.mu.Lock()
	c.state = state
	c.history = history.History
	c.stats = stats
	c.online = true
	c.mu.Unlock()
}

// runSteps POSTs n step requests sequentially off the UI thread.
func (c *client) runSteps(n int) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return
	}
	c.busy = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.busy = false
			c.mu.Unlock()
		}()
		for i := 0; i < n; i++ {
			resp, err := c.http.Post(c.base+"/simulation/step", "application/json", nil)
			if err != nil {
				slog.Warn("step failed", "error", err)
				return
			}
			resp.Body.Close()
		}
		c.refresh()
	}()
}

func (c *client) reset() {
	go func() {
		resp, err := c.http.Post(c.base+"/simulation/reset", "application/json", nil)
		if err != nil {
			slog.Warn("reset failed", "error", err)
			return
		}
		resp.Body.Close()
		c.refresh()
	}()
}

// snapshot copies the cached view for drawing.
func (c *client) snapshot() (stateResponse, []stepRecord, map[string]speciesStats, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.history, c.stats, c.online, c.busy
}

func main() {
	apiBase := flag.String("api", "http://127.0.0.1:16050", "Golem API base URL")
	interval := flag.Duration("interval", time.Second, "Poll interval")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	c := newClient(*apiBase)
	c.refresh()

	rl.InitWindow(windowWidth, windowHeight, "Golem Population Dashboard")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	lastPoll := time.Now()

	for !rl.WindowShouldClose() {
		if time.Since(lastPoll) >= *interval {
			c.refresh()
			lastPoll = time.Now()
		}

		state, history, stats, online, busy := c.snapshot()

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(24, 26, 33, 255))

		drawHeader(state, online)
		drawChart(history)
		drawStatsPanel(stats)

		// Controls
		buttonY := float32(chartY + chartHeight + 20)
		if gui.Button(rl.Rectangle{X: chartX, Y: buttonY, Width: 140, Height: 32}, "Run 1 Step") && !busy {
			c.runSteps(1)
		}
		if gui.Button(rl.Rectangle{X: chartX + 150, Y: buttonY, Width: 140, Height: 32}, "Run 50 Steps") && !busy {
			c.runSteps(50)
		}
		if gui.Button(rl.Rectangle{X: chartX + 300, Y: buttonY, Width: 140, Height: 32}, "Reset") && !busy {
			c.reset()
		}
		if busy {
			rl.DrawText("running...", chartX+460, int32(buttonY)+8, 16, rl.Gray)
		}

		rl.EndDrawing()
	}
}

func drawHeader(state stateResponse, online bool) {
	rl.DrawText("Golem Population Dashboard", 20, 15, 24, rl.White)

	status := "OFFLINE"
	statusColor := rl.Red
	if online {
		status = "CONNECTED"
		statusColor = rl.Lime
		if state.RivalSource == "FALLBACK" {
			status = "CONNECTED (rival fallback)"
			statusColor = rl.Orange
		}
	}
	rl.DrawText(status, windowWidth-20-rl.MeasureText(status, 16), 20, 16, statusColor)

	line := fmt.Sprintf("Tick: %d", state.Tick)
	for _, name := range sortedNames(state.Populations) {
		line += fmt.Sprintf(" | %s: %.1f", name, state.Populations[name])
	}
	rl.DrawText(line, 20, 50, 18, rl.LightGray)
}

// drawChart renders one autoscaled polyline per species over history.
func drawChart(history []stepRecord) {
	rl.DrawRectangle(chartX, chartY, chartWidth, chartHeight, rl.NewColor(32, 35, 44, 255))
	rl.DrawRectangleLines(chartX, chartY, chartWidth, chartHeight, rl.DarkGray)

	if len(history) < 2 {
		rl.DrawText("no history yet", chartX+chartWidth/2-60, chartY+chartHeight/2, 16, rl.Gray)
		return
	}

	// Autoscale over every species' series.
	maxVal := 1.0
	for _, rec := range history {
		for _, size := range rec.Populations {
			if size > maxVal {
				maxVal = size
			}
		}
	}

	names := sortedNames(history[len(history)-1].Populations)
	for si, name := range names {
		color := seriesColors[si%len(seriesColors)]

		var prev rl.Vector2
		for i, rec := range history {
			size, ok := rec.Populations[name]
			if !ok {
				continue
			}
			x := float32(chartX) + float32(i)/float32(len(history)-1)*float32(chartWidth)
			y := float32(chartY+chartHeight) - float32(size/maxVal)*float32(chartHeight-10)
			point := rl.Vector2{X: x, Y: y}
			if i > 0 {
				rl.DrawLineV(prev, point, color)
			}
			prev = point
		}

		// Legend
		rl.DrawRectangle(chartX+10+int32(si)*120, chartY+10, 10, 10, color)
		rl.DrawText(name, chartX+25+int32(si)*120, chartY+8, 14, rl.LightGray)
	}

	scale := fmt.Sprintf("max %.0f", maxVal)
	rl.DrawText(scale, chartX+chartWidth-rl.MeasureText(scale, 12)-6, chartY+chartHeight-18, 12, rl.Gray)
}

func drawStatsPanel(stats map[string]speciesStats) {
	rl.DrawRectangle(panelX, chartY, panelWidth, chartHeight, rl.NewColor(32, 35, 44, 255))
	rl.DrawRectangleLines(panelX, chartY, panelWidth, chartHeight, rl.DarkGray)
	rl.DrawText("Summary statistics", panelX+10, chartY+10, 18, rl.White)

	y := int32(chartY + 40)
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := stats[name]
		rl.DrawText(name, panelX+10, y, 16, rl.SkyBlue)
		y += 22
		rl.DrawText(fmt.Sprintf("min %.1f   max %.1f", s.Min, s.Max), panelX+20, y, 14, rl.LightGray)
		y += 20
		rl.DrawText(fmt.Sprintf("mean %.1f  stddev %.1f", s.Mean, s.StdDev), panelX+20, y, 14, rl.LightGray)
		y += 28
	}
}

func sortedNames(populations map[string]float64) []string {
	names := make([]string, 0, len(populations))
	for name := range populations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

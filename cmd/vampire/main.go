// Stand-in rival service for local development. Serves a Vampire census on
// /taille: a sine wave by default, or a live agent colony with -swarm.
//
// Usage: go run ./cmd/vampire [-swarm]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// CensusSource reports the rival population's current size.
type CensusSource interface {
	Size() float64
}

// sineCensus is the default source: base + amp*sin(t*0.5), chosen so the
// census stays positive.
type sineCensus struct {
	start time.Time
	base  float64
	amp   float64
}

func (s *sineCensus) Size() float64 {
	t := time.Since(s.start).Seconds()
	return s.base + s.amp*math.Sin(t*0.5)
}

func main() {
	port := flag.Int("port", 16040, "Listen port")
	base := flag.Float64("base", 800, "Sine census baseline")
	amp := flag.Float64("amp", 300, "Sine census amplitude")
	swarm := flag.Bool("swarm", false, "Serve a live agent colony census instead of the sine wave")
	agents := flag.Int("agents", 800, "Swarm mode: initial colony size")
	tick := flag.Duration("tick", 500*time.Millisecond, "Swarm mode: colony tick interval")
	seed := flag.Int64("seed", 0, "Swarm mode: RNG seed (0 = time-based)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var source CensusSource
	if *swarm {
		rngSeed := *seed
		if rngSeed == 0 {
			rngSeed = time.Now().UnixNano()
		}
		colony := NewColony(*agents, rngSeed)
		go colony.Run(*tick)
		source = colony
		slog.Info("starting vampire census service", "mode", "swarm", "agents", *agents, "seed", rngSeed)
	} else {
		source = &sineCensus{start: time.Now(), base: *base, amp: *amp}
		slog.Info("starting vampire census service", "mode", "sine", "base", *base, "amp", *amp)
	}

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Vampire Census API",
			"port":    *port,
		})
	})

	router.GET("/taille", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"taille":  source.Size(),
			"species": "Vampire",
		})
	})

	if err := router.Run(fmt.Sprintf(":%d", *port)); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

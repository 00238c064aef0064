package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/golem/config"
)

func main() {
	// CLI flags
	dataPath := flag.String("data", "", "Observed series CSV (tick,size[,rival])")
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	outputDir := flag.String("output", "", "Output directory for results")
	maxEvals := flag.Int("max-evals", 500, "Maximum number of evaluations")
	popSize := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("--data is required")
	}
	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	// Load observed series
	obs, err := LoadSeries(*dataPath)
	if err != nil {
		log.Fatalf("failed to load series: %v", err)
	}

	params := NewParamVector()
	evaluator := NewEvaluator(obs)
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			return evaluator.Evaluate(raw)
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation
	}

	population := *popSize
	if population == 0 {
		// Auto-size: 4 + floor(3*ln(n))
		population = 4 + int(3.0*float64(params.Dim())/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   population,
	}

	// Open evaluation log
	logPath := filepath.Join(*outputDir, "calibrate_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "mse"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	logWriter.Write(header)

	// Wrap the function to track the best vector and log evaluations
	evalCount := 0
	bestMSE := 1e18
	var bestParams []float64

	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		mse := originalFunc(x)
		evalCount++

		clamped := params.Clamp(params.Denormalize(x))
		if mse < bestMSE {
			bestMSE = mse
			bestParams = make([]float64, len(clamped))
			copy(bestParams, clamped)
		}

		row := []string{strconv.Itoa(evalCount), fmt.Sprintf("%.6f", mse)}
		for _, v := range clamped {
			row = append(row, fmt.Sprintf("%.6f", v))
		}
		logWriter.Write(row)
		logWriter.Flush()

		return mse
	}

	fmt.Printf("Fitting %d parameters to %d observations, population=%d, max_evals=%d\n",
		params.Dim(), len(obs), population, *maxEvals)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Best params may come from any evaluation, not just the final one
	if bestParams == nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nCalibration complete after %d evaluations\n", evalCount)
	fmt.Printf("Best MSE: %.6f\n", bestMSE)
	fmt.Println("\nFitted parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, bestParams[i])
	}

	// Save the fitted config
	fittedCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(fittedCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "fitted_config.yaml")
	if err := fittedCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write fitted config: %v", err)
	} else {
		fmt.Printf("\nFitted config saved to: %s\n", configOutPath)
	}
}

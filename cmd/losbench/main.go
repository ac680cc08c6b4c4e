// Command losbench measures viewer/target pairs of a scene document with
// every visibility algorithm and reports how far they agree.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sightline/internal/calc"
	"sightline/internal/config"
	"sightline/internal/debugplot"
	"sightline/internal/logging"
	"sightline/internal/los"
	"sightline/internal/raster"
	"sightline/internal/sceneio"
)

// Config holds the command line
type Config struct {
	ConfigFile string
	SceneFile  string
	Viewer     string
	Target     string
	PlotDir    string
	OutputJSON string
	Verbose    bool
}

// Report is the outcome of one run
type Report struct {
	RunID     string        `json:"run_id"`
	Scene     string        `json:"scene"`
	Algorithm string        `json:"configured_algorithm"`
	Pairs     []PairResult  `json:"pairs"`
	Duration  time.Duration `json:"duration_ns"`
}

// PairResult compares the algorithms on one viewer/target pair
type PairResult struct {
	Viewer       string             `json:"viewer"`
	Target       string             `json:"target"`
	PerAlgorithm map[string]float64 `json:"per_algorithm"`
	TimingUs     map[string]int64   `json:"timing_us"`
	// Combined is the configured algorithm over every viewer eye
	Combined float64 `json:"combined"`
	HasLOS   bool    `json:"has_los"`
	// Spread is the largest difference between two algorithms
	Spread float64 `json:"spread"`
	Plot   string  `json:"plot,omitempty"`
}

var algorithms = []calc.Algorithm{calc.AlgorithmPoints, calc.AlgorithmGeometric, calc.AlgorithmRaster, calc.AlgorithmHybrid}

func main() {
	cfg := parseFlags()
	if cfg.SceneFile == "" {
		log.Fatal("scene file is required")
	}

	report, err := run(cfg, os.Stderr)
	if err != nil {
		log.Fatalf("benchmark failed: %v", err)
	}
	printReport(os.Stdout, report)

	if cfg.OutputJSON != "" {
		if err := exportJSON(report, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Settings file (YAML or JSON); defaults apply when empty")
	flag.StringVar(&cfg.SceneFile, "scene", "", "Scene document to load")
	flag.StringVar(&cfg.Viewer, "viewer", "", "Viewer token key; every token when empty")
	flag.StringVar(&cfg.Target, "target", "", "Target token key; every other token when empty")
	flag.StringVar(&cfg.PlotDir, "plot", "", "Directory for geometric breakdown plots")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Write the report as JSON to this file")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Console logging at debug level")

	flag.Parse()
	return cfg
}

func run(cfg Config, logOut io.Writer) (*Report, error) {
	settings := config.Defaults()
	if cfg.ConfigFile != "" {
		var err error
		if settings, err = config.Load(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	level := settings.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	runID := uuid.New()
	logger := logging.New(logging.Options{Level: level, Console: true, Out: logOut}).
		With().Str("run", runID.String()).Logger()

	s, err := sceneio.Load(cfg.SceneFile, logger)
	if err != nil {
		return nil, err
	}

	if cfg.PlotDir != "" {
		if err := os.MkdirAll(cfg.PlotDir, 0755); err != nil {
			return nil, fmt.Errorf("creating plot directory: %w", err)
		}
	}

	pool := raster.NewPool(nil)
	defer pool.Close()

	b := &bench{
		scene:    s,
		pool:     pool,
		log:      logger,
		calcCfg:  settings.CalcConfig(logger),
		losCfg:   settings.LOSConfig(logger),
		alg:      settings.AlgorithmKey(logger),
		calcs:    make(map[calc.Algorithm]calc.Calculator),
		plotDir:  cfg.PlotDir,
		runID:    runID.String(),
		explainG: calc.NewGeometric(s.Manager, logger),
	}
	for _, alg := range algorithms {
		b.calcs[alg] = calc.New(alg, s.Manager, pool, logger)
	}

	start := time.Now()
	report := &Report{RunID: runID.String(), Scene: s.Name, Algorithm: string(b.alg)}
	for _, v := range keys(s, cfg.Viewer) {
		for _, t := range keys(s, cfg.Target) {
			if v == t {
				continue
			}
			pr, err := b.measure(v, t)
			if err != nil {
				return nil, err
			}
			report.Pairs = append(report.Pairs, pr)
		}
	}
	report.Duration = time.Since(start)

	logger.Info().
		Int("pairs", len(report.Pairs)).
		Dur("duration", report.Duration).
		Msg("benchmark finished")
	return report, nil
}

func keys(s *sceneio.Scene, only string) []string {
	if only != "" {
		return []string{only}
	}
	return s.Keys()
}

type bench struct {
	scene    *sceneio.Scene
	pool     *raster.Pool
	log      zerolog.Logger
	calcCfg  calc.Config
	losCfg   los.Config
	alg      calc.Algorithm
	calcs    map[calc.Algorithm]calc.Calculator
	plotDir  string
	runID    string
	explainG *calc.Geometric
}

func (b *bench) measure(viewerKey, targetKey string) (PairResult, error) {
	viewer, err := b.scene.Token(viewerKey)
	if err != nil {
		return PairResult{}, fmt.Errorf("viewer: %w", err)
	}
	target, err := b.scene.Token(targetKey)
	if err != nil {
		return PairResult{}, fmt.Errorf("target: %w", err)
	}

	pr := PairResult{
		Viewer:       viewerKey,
		Target:       targetKey,
		PerAlgorithm: make(map[string]float64, len(algorithms)),
		TimingUs:     make(map[string]int64, len(algorithms)),
	}
	req := calc.Request{Viewer: viewer, Target: target}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, alg := range algorithms {
		start := time.Now()
		p := b.calcs[alg].Calculate(req, b.calcCfg).PercentVisible()
		pr.TimingUs[string(alg)] = time.Since(start).Microseconds()
		pr.PerAlgorithm[string(alg)] = p
		lo, hi = math.Min(lo, p), math.Max(hi, p)
	}
	pr.Spread = hi - lo

	l := los.New(viewer, b.scene.Manager, b.calcs[b.alg], b.losCfg, b.log)
	pr.Combined = l.PercentVisible(target)
	pr.HasLOS = los.HasLOS(pr.Combined, b.losCfg.Threshold)

	if b.plotDir != "" {
		pr.Plot = filepath.Join(b.plotDir, fmt.Sprintf("%s_%s_%s.png", b.runID[:8], viewerKey, targetKey))
		title := fmt.Sprintf("%s -> %s", viewerKey, targetKey)
		if err := debugplot.Save(b.explainG.Explain(req, b.calcCfg), title, pr.Plot); err != nil {
			b.log.Warn().Err(err).Str("plot", pr.Plot).Msg("plot failed")
			pr.Plot = ""
		}
	}

	b.log.Debug().
		Str("viewer", viewerKey).
		Str("target", targetKey).
		Float64("spread", pr.Spread).
		Float64("combined", pr.Combined).
		Msg("pair measured")
	return pr, nil
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "run %s  scene %q  algorithm %s  (%d pairs in %v)\n", r.RunID, r.Scene, r.Algorithm, len(r.Pairs), r.Duration)
	names := make([]string, len(algorithms))
	for i, a := range algorithms {
		names[i] = string(a)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "%-16s %-16s", "viewer", "target")
	for _, n := range names {
		fmt.Fprintf(w, " %10s", n)
	}
	fmt.Fprintf(w, " %10s %7s %s\n", "combined", "spread", "los")
	for _, p := range r.Pairs {
		fmt.Fprintf(w, "%-16s %-16s", trim(p.Viewer), trim(p.Target))
		for _, n := range names {
			fmt.Fprintf(w, " %9.1f%%", 100*p.PerAlgorithm[n])
		}
		fmt.Fprintf(w, " %9.1f%% %7.3f %v\n", 100*p.Combined, p.Spread, p.HasLOS)
	}
}

func trim(s string) string {
	if len(s) > 16 {
		return s[:15] + "…"
	}
	return s
}

func exportJSON(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

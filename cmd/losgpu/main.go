// Command losgpu runs the raster algorithm on the GPU device inside an
// ebiten game loop, next to the software rasterizer, for a viewer/target
// pair of a scene document. Arrow keys move the target.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog"

	"sightline/internal/calc"
	"sightline/internal/config"
	"sightline/internal/core"
	"sightline/internal/logging"
	"sightline/internal/raster"
	"sightline/internal/raster/ebitendev"
	"sightline/internal/result"
	"sightline/internal/scene"
	"sightline/internal/sceneio"
)

const (
	screenWidth  = 800
	screenHeight = 800
	step         = 5.0
)

var (
	wallColor   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	viewerColor = color.RGBA{R: 255, G: 255, B: 100, A: 255}
	targetColor = color.RGBA{R: 255, G: 60, B: 60, A: 255}
	bodyColor   = color.RGBA{R: 120, G: 120, B: 255, A: 255}
)

// Game measures the pair once per tick with both devices
type Game struct {
	scene    *sceneio.Scene
	viewer   uint64
	target   uint64
	cfg      calc.Config
	gpu      calc.Calculator
	cpu      calc.Calculator
	gpuPool  *raster.Pool
	cpuPool  *raster.Pool
	log      zerolog.Logger
	view     view
	frames   int
	maxFrame int

	gpuPercent float64
	cpuPercent float64
	gpuFailed  bool
}

func (g *Game) Update() error {
	if err := g.moveTarget(); err != nil {
		return err
	}

	viewer, err := g.scene.Manager.Token(g.viewer)
	if err != nil {
		return err
	}
	target, err := g.scene.Manager.Token(g.target)
	if err != nil {
		return err
	}
	req := calc.Request{Viewer: viewer, Target: target}

	res := g.gpu.Calculate(req, g.cfg)
	g.gpuPercent, g.gpuFailed = res.PercentVisible(), result.IsFailed(res)
	g.cpuPercent = g.cpu.Calculate(req, g.cfg).PercentVisible()

	g.frames++
	if g.maxFrame > 0 && g.frames >= g.maxFrame {
		g.log.Info().
			Int("frames", g.frames).
			Float64("gpu", g.gpuPercent).
			Float64("software", g.cpuPercent).
			Msg("done")
		return ebiten.Termination
	}
	return nil
}

func (g *Game) moveTarget() error {
	var d core.Vector2D
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		d.Y += step
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		d.Y -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		d.X -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		d.X += step
	}
	if d == (core.Vector2D{}) {
		return nil
	}
	t, err := g.scene.Manager.Token(g.target)
	if err != nil {
		return err
	}
	return g.scene.Manager.UpdateToken(t.WithFootprint(t.Footprint.Translate(d)))
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)

	for _, ob := range g.scene.Manager.QueryObstacles(scene.KindWall, g.view.bounds.To3D(-1e9, 1e9)) {
		w := ob.(*scene.Wall)
		g.line(screen, w.A, w.B, wallColor)
	}
	for _, t := range g.scene.Manager.Tokens() {
		c := bodyColor
		switch t.ID {
		case g.viewer:
			c = viewerColor
		case g.target:
			c = targetColor
		}
		fp := t.Footprint
		for i := range fp {
			g.line(screen, fp[i], fp[(i+1)%len(fp)], c)
		}
	}

	status := fmt.Sprintf("gpu %.1f%%  software %.1f%%  devices %d/%d  tps %.0f",
		100*g.gpuPercent, 100*g.cpuPercent, g.gpuPool.Created(), g.cpuPool.Created(), ebiten.ActualTPS())
	if g.gpuFailed {
		status += "  (gpu device failed)"
	}
	ebitenutil.DebugPrint(screen, status)
}

func (g *Game) line(screen *ebiten.Image, a, b core.Vector2D, c color.Color) {
	x0, y0 := g.view.toScreen(a)
	x1, y1 := g.view.toScreen(b)
	vector.StrokeLine(screen, x0, y0, x1, y1, 1.5, c, true)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	var (
		configFile = flag.String("config", "", "Settings file (YAML or JSON)")
		sceneFile  = flag.String("scene", "", "Scene document to load")
		viewerKey  = flag.String("viewer", "", "Viewer token key")
		targetKey  = flag.String("target", "", "Target token key")
		frames     = flag.Int("frames", 0, "Stop after this many ticks; 0 runs until closed")
	)
	flag.Parse()

	if *sceneFile == "" || *viewerKey == "" || *targetKey == "" {
		log.Fatal("scene, viewer and target are required")
	}

	settings := config.Defaults()
	if *configFile != "" {
		var err error
		if settings, err = config.Load(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	logger := logging.New(logging.Options{Level: settings.LogLevel, Console: true, Out: os.Stderr})

	s, err := sceneio.Load(*sceneFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading scene")
	}
	viewer, err := s.Token(*viewerKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("viewer")
	}
	target, err := s.Token(*targetKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("target")
	}

	gpuPool := raster.NewPool(ebitendev.Factory)
	cpuPool := raster.NewPool(raster.SoftwareFactory)
	defer gpuPool.Close()
	defer cpuPool.Close()

	g := &Game{
		scene:    s,
		viewer:   viewer.ID,
		target:   target.ID,
		cfg:      settings.CalcConfig(logger),
		gpu:      calc.NewRaster(s.Manager, gpuPool, logger.With().Str("device", "gpu").Logger()),
		cpu:      calc.NewRaster(s.Manager, cpuPool, logger.With().Str("device", "software").Logger()),
		gpuPool:  gpuPool,
		cpuPool:  cpuPool,
		log:      logger,
		view:     newView(s.Manager.GetBounds(), screenWidth, screenHeight),
		maxFrame: *frames,
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("sightline: gpu raster")
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Fatal().Err(err).Msg("game loop")
	}
}

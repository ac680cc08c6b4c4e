package calc

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"sightline/internal/result"
)

const instrumentationName = "sightline/internal/calc"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Shortcut reasons
const (
	reasonRadius     = "radius"
	reasonNoTarget   = "no-target"
	reasonInside     = "inside-target"
	reasonUnlit      = "unlit"
	reasonNoObstacle = "no-obstacles"
	reasonDevice     = "device"
	reasonEmpty      = "empty-projection"
)

type instruments struct {
	calculations metric.Int64Counter
	shortcuts    metric.Int64Counter
}

// newInstruments binds counters on the global provider, falling back to
// no-op counters when creation fails
func newInstruments(log zerolog.Logger) instruments {
	m := meter()
	calcs, err := m.Int64Counter(
		"sightline.calc.calculations",
		metric.WithDescription("Visibility calculations by algorithm and outcome"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("creating calculations counter")
		calcs = noop.Int64Counter{}
	}
	shortcuts, err := m.Int64Counter(
		"sightline.calc.shortcuts",
		metric.WithDescription("Calculations decided before measuring"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("creating shortcuts counter")
		shortcuts = noop.Int64Counter{}
	}
	return instruments{calculations: calcs, shortcuts: shortcuts}
}

func (in instruments) calculated(alg Algorithm, res result.Result) {
	in.calculations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("algorithm", string(alg)),
		attribute.String("state", res.State().String()),
	))
}

func (in instruments) shortcut(reason string) {
	in.shortcuts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

var eyeInstruments = sync.OnceValue(func() instruments { return newInstruments(zerolog.Nop()) })

// RecordNoObstacles counts a measurement an eye skipped because its frustum
// held no obstacle
func RecordNoObstacles() {
	eyeInstruments().shortcut(reasonNoObstacle)
}

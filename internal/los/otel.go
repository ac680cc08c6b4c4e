package los

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "sightline/internal/los"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type cacheInstruments struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	invalidations metric.Int64Counter
}

func newCacheInstruments(log zerolog.Logger) cacheInstruments {
	m := meter()
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			log.Warn().Err(err).Str("counter", name).Msg("creating cache counter")
			return noop.Int64Counter{}
		}
		return c
	}
	return cacheInstruments{
		hits:          counter("sightline.los.cache.hits", "Results served from the line-of-sight cache"),
		misses:        counter("sightline.los.cache.misses", "Results calculated because no valid entry existed"),
		invalidations: counter("sightline.los.cache.invalidations", "Cache entries dropped after scene or config changes"),
	}
}

func (c cacheInstruments) hit()  { c.hits.Add(context.Background(), 1) }
func (c cacheInstruments) miss() { c.misses.Add(context.Background(), 1) }

func (c cacheInstruments) invalidated(n int) {
	if n > 0 {
		c.invalidations.Add(context.Background(), int64(n))
	}
}

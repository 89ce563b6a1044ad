package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
)

func TestProfiler_Tick(t *testing.T) {
	var out bytes.Buffer
	clock := time.Unix(0, 0)
	p := NewProfiler(
		WithInterval(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(&out, nil))),
		WithClock(func() time.Time { return clock }),
		WithCacheStatistics(func() pipeline.Statistics {
			return pipeline.Statistics{Semantic: pipeline.LayerStatistics{Size: 3, Hits: 9, Misses: 1}}
		}),
	)

	for range 29 {
		clock = clock.Add(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Empty(t, out.String())

	clock = clock.Add(710 * time.Millisecond)
	assert.True(t, p.Tick())

	line := out.String()
	assert.Contains(t, line, "fps=30")
	assert.Contains(t, line, "semantic.size=3")
	assert.Contains(t, line, "semantic.hit_ratio=0.9")

	clock = clock.Add(10 * time.Millisecond)
	assert.False(t, p.Tick())
}

package shader

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// WarmupFailure is one shader variant that failed validation during warm-up.
type WarmupFailure struct {
	ShaderID string
	Defines  []string
	Err      error
}

// WarmupReport summarizes a warm-up run.
type WarmupReport struct {
	// Variants is the number of shader variants validated.
	Variants int

	// Warnings is the total number of warnings across valid variants.
	Warnings int

	Failures []WarmupFailure
	Duration time.Duration
}

// warmupVariant is one (shader, define set) pair to validate.
type warmupVariant struct {
	id      string
	defines []string
}

// Warmup validates every registered shader across its declared define variants, plus the empty
// define set, on a worker pool owned by the caller. The pool is reused across calls and is not
// stopped here. Nothing is created on the device; the run fills the pre-processor's include
// cache and surfaces broken variants before the first frame.
//
// Parameters:
//   - ctx: cancels submission of variants not yet started
//   - c: the compiler whose Validate is run
//   - reg: the registry to enumerate
//   - pool: the worker pool the variants are submitted to
//   - logger: the logger failures and the summary are written to
//
// Returns:
//   - WarmupReport: counts and failures, sorted in registry order
func Warmup(ctx context.Context, c Compiler, reg Registry, pool worker.DynamicWorkerPool, logger *slog.Logger) WarmupReport {
	start := time.Now()
	if logger == nil {
		logger = slog.Default()
	}

	var variants []warmupVariant
	for _, id := range reg.IDs() {
		src, err := reg.Source(id)
		if err != nil {
			continue
		}
		variants = append(variants, warmupVariant{id: id})
		seen := map[string]bool{"": true}
		for _, v := range src.Variants {
			canon := CanonicalDefines(v)
			key := strings.Join(canon, ",")
			if seen[key] {
				continue
			}
			seen[key] = true
			variants = append(variants, warmupVariant{id: id, defines: canon})
		}
	}

	type outcome struct {
		warnings int
		err      error
		done     bool
	}
	results := make([]outcome, len(variants))

	var wg sync.WaitGroup
	for i, v := range variants {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		idx, variant := i, v
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				warnings, err := c.Validate(variant.id, variant.defines)
				results[idx] = outcome{warnings: len(warnings), err: err, done: true}
				return nil, err
			},
		})
	}
	wg.Wait()

	report := WarmupReport{}
	for i, r := range results {
		if !r.done {
			continue
		}
		report.Variants++
		report.Warnings += r.warnings
		if r.err != nil {
			report.Failures = append(report.Failures, WarmupFailure{
				ShaderID: variants[i].id,
				Defines:  variants[i].defines,
				Err:      r.err,
			})
			logger.Error("shader warm-up failed", "shader", variants[i].id, "defines", variants[i].defines, "error", r.err)
		}
	}
	report.Duration = time.Since(start)
	logger.Info("shader warm-up complete",
		"variants", report.Variants,
		"failures", len(report.Failures),
		"warnings", report.Warnings,
		"duration", report.Duration)
	return report
}

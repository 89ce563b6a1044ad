package pipeline

import (
	"log/slog"
	"time"
)

// ResolverBuilderOption is a functional option applied to a resolver during construction via NewResolver.
type ResolverBuilderOption func(*resolver)

// WithSemanticCacheSize sets the capacity of the semantic cache layer.
//
// Parameters:
//   - n: the maximum number of semantic entries, at least 1
//
// Returns:
//   - ResolverBuilderOption: a function that applies the size to a resolver
func WithSemanticCacheSize(n int) ResolverBuilderOption {
	return func(r *resolver) {
		r.semanticSize = n
	}
}

// WithGPUCacheSize sets the capacity of the GPU cache layer.
//
// Parameters:
//   - n: the maximum number of GPU entries, at least 1
//
// Returns:
//   - ResolverBuilderOption: a function that applies the size to a resolver
func WithGPUCacheSize(n int) ResolverBuilderOption {
	return func(r *resolver) {
		r.gpuSize = n
	}
}

// WithRetirer sets where dropped GPU objects go. The default releases them immediately.
//
// Parameters:
//   - retirer: the retirer, typically the render context's release queue
//
// Returns:
//   - ResolverBuilderOption: a function that applies the retirer to a resolver
func WithRetirer(retirer Retirer) ResolverBuilderOption {
	return func(r *resolver) {
		r.retirer = retirer
	}
}

// WithLogger sets the logger used by the resolver.
func WithLogger(logger *slog.Logger) ResolverBuilderOption {
	return func(r *resolver) {
		r.logger = logger
	}
}

// WithClock sets the clock used for last-used timestamps.
func WithClock(now func() time.Time) ResolverBuilderOption {
	return func(r *resolver) {
		r.now = now
	}
}

package protocol

import "context"

type generationKey struct{}

// ContextWithGeneration tags a command with the session generation it was
// issued under. Transports that support it forward the value to the host,
// which echoes it in the matching python-execution-finished event.
func ContextWithGeneration(ctx context.Context, generation uint64) context.Context {
	return context.WithValue(ctx, generationKey{}, generation)
}

// GenerationFromContext returns the generation set by ContextWithGeneration.
func GenerationFromContext(ctx context.Context) (uint64, bool) {
	generation, ok := ctx.Value(generationKey{}).(uint64)

	return generation, ok
}

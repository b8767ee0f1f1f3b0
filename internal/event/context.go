package event

import "context"

type worldKey struct{}

// WithWorld returns a context carrying w, so stage functions can emit side
// events with Emit.
func WithWorld(ctx context.Context, w *World) context.Context {
	return context.WithValue(ctx, worldKey{}, w)
}

// WorldFrom extracts the world stored by WithWorld.
func WorldFrom(ctx context.Context) (*World, bool) {
	w, ok := ctx.Value(worldKey{}).(*World)
	return w, ok && w != nil
}

// Emit writes v to the world carried by ctx. Returns false when ctx carries
// no world or T has no channel.
func Emit[T any](ctx context.Context, v T) bool {
	w, ok := WorldFrom(ctx)
	if !ok {
		return false
	}
	return Write(w, v)
}

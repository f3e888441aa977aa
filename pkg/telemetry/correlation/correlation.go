// Package correlation carries the purchase attempt identifier across the
// purchase workflow, its audit row and its trace spans.
package correlation

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type attemptKey struct{}

func AttemptID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(attemptKey{}).(string); ok {
		return val
	}
	return ""
}

func WithAttemptID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, attemptKey{}, id)
}

// EnsureAttemptID returns the attempt already on ctx or starts a new one.
// Identifiers are ULIDs so attempts sort by start time.
func EnsureAttemptID(ctx context.Context) (context.Context, string) {
	if id := AttemptID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return WithAttemptID(ctx, id), id
}

// StartedAt recovers the creation time embedded in an attempt identifier.
func StartedAt(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(strings.TrimSpace(id))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()).UTC(), true
}

package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAttemptIDGeneratesULID(t *testing.T) {
	ctx, id := EnsureAttemptID(context.Background())
	require.NotEmpty(t, id)
	_, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, AttemptID(ctx))

	_, again := EnsureAttemptID(ctx)
	assert.Equal(t, id, again)
}

func TestWithAttemptIDIgnoresBlank(t *testing.T) {
	ctx := WithAttemptID(context.Background(), "  ")
	assert.Empty(t, AttemptID(ctx))
}

func TestStartedAt(t *testing.T) {
	before := time.Now().Add(-time.Second)
	_, id := EnsureAttemptID(context.Background())

	at, ok := StartedAt(id)
	require.True(t, ok)
	assert.True(t, at.After(before))

	_, ok = StartedAt("not-a-ulid")
	assert.False(t, ok)
}

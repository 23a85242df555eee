package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, ok := s.Read(ctx)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, "first"))
	require.NoError(t, s.Write(ctx, "second"))

	raw, ok := s.Read(ctx)
	assert.True(t, ok)
	assert.Equal(t, "second", raw)
}

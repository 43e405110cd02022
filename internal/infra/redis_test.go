package infra

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+mr.Addr()+"/0", "AgentCash")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, "AgentCash", client.Options().ClientName)

	_, err = NewRedisClient(ctx, "", "AgentCash")
	assert.Error(t, err)
	_, err = NewRedisClient(ctx, "not a url", "AgentCash")
	assert.Error(t, err)
}

//go:build integration

package mongodb_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/congo-pay/agentcash/internal/store/mongodb"
	"github.com/congo-pay/agentcash/internal/store/storetest"
)

// setupMongo starts a single-node replica set, which transactions need.
func setupMongo(t *testing.T) *mongo.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx,
		"mongo:7",
		tcmongo.WithReplicaSet("rs0"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetDirect(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })
	require.NoError(t, client.Ping(ctx, nil))
	return client
}

func TestIntegration_Mongo_Suite(t *testing.T) {
	client := setupMongo(t)
	var n atomic.Int32

	storetest.Run(t, func(t *testing.T) storetest.Store {
		st := mongodb.New(client, fmt.Sprintf("agentcash_%d", n.Add(1)))
		require.NoError(t, st.EnsureIndexes(context.Background()))
		return st
	})
}

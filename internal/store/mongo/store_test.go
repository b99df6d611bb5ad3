package mongo

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"courseplanner-backend/internal/store"
	"courseplanner-backend/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startMongo(t *testing.T) string {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{"27017/tcp"},
				WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(time.Minute),
			},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Log(err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)
	return endpoint
}

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("mongo container tests are skipped in short mode")
	}
	uri := startMongo(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), Config{
			Uri:      uri,
			Database: fmt.Sprintf("test_%s", uuid.NewString()[:8]),
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			s.db.Drop(context.Background())
			s.Close()
		})
		return s
	})
}

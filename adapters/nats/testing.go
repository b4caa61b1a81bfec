package nats

import (
	"context"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Testing is the part of *testing.T the container helper needs.
type Testing interface {
	require.TestingT
	Context() context.Context
	Logf(format string, args ...any)
	Cleanup(func())
}

const natsPort = "4222/tcp"

// NewTestContainer starts a NATS server for the test and returns a
// Connector for it. The server is terminated when the test ends.
func NewTestContainer(t Testing) Connector {
	ctx := t.Context()
	natsC, err := testcontainers.Run(
		ctx, "nats:2-alpine",
		testcontainers.WithExposedPorts(natsPort),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort(natsPort),
			wait.ForLog("Server is ready"),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(natsC); err != nil {
			t.Errorf("terminate nats container: %s", err)
		}
	})

	endpoint, err := natsC.PortEndpoint(ctx, natsPort, "nats")
	require.NoError(t, err)
	t.Logf("nats endpoint: %s", endpoint)
	return ConnectURL(endpoint)
}

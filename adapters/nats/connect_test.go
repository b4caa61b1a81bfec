package nats

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

func TestShared(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	connect := Shared(NewTestContainer(t))

	nc1, release1, err := connect()
	require.NoError(t, err)
	require.Equal(t, "CONNECTED", nc1.Status().String())
	require.Equal(t, DefaultConnectionName, nc1.Opts.Name)

	nc2, release2, err := connect()
	require.NoError(t, err)
	require.Same(t, nc1, nc2)

	release1()
	release1()
	require.Equal(t, "CONNECTED", nc1.Status().String(), "still leased")
	release2()
	require.Equal(t, "CLOSED", nc1.Status().String())

	nc3, release3, err := connect()
	require.NoError(t, err)
	require.NotSame(t, nc1, nc3)
	require.Equal(t, "CONNECTED", nc3.Status().String())
	release2()
	require.Equal(t, "CONNECTED", nc3.Status().String(), "stale release")
	release3()
	require.Equal(t, "CLOSED", nc3.Status().String())
}

func TestConnect_Unreachable(t *testing.T) {
	_, _, err := Connect(ConnectOptions{URL: "nats://127.0.0.1:1", Name: "unreachable"})()
	require.Error(t, err)
}

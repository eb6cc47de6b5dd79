package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewServerAppliesDefaults(t *testing.T) {
	srv := NewServer(ServerConfig{Address: ":8080", ReadTimeout: 15 * time.Second}, http.NotFoundHandler())

	require.Equal(t, ":8080", srv.Addr)
	require.Equal(t, 15*time.Second, srv.ReadTimeout)
	require.Equal(t, defaultReadHeaderTimeout, srv.ReadHeaderTimeout)
	require.Equal(t, defaultMaxHeaderBytes, srv.MaxHeaderBytes)
}

func TestNewServerKeepsExplicitValues(t *testing.T) {
	srv := NewServer(ServerConfig{ReadHeaderTimeout: time.Second, MaxHeaderBytes: 1024, IdleTimeout: time.Minute}, http.NotFoundHandler())

	require.Equal(t, time.Second, srv.ReadHeaderTimeout)
	require.Equal(t, 1024, srv.MaxHeaderBytes)
	require.Equal(t, time.Minute, srv.IdleTimeout)
}

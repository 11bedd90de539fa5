package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dujiao-next/ledger/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewHTTPServiceTimeouts(t *testing.T) {
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "9090", ReadTimeoutSec: 3}, http.NotFoundHandler())
	require.Equal(t, "127.0.0.1:9090", svc.server.Addr)
	require.Equal(t, 3*time.Second, svc.server.ReadTimeout)
	require.Equal(t, defaultWriteTimeout, svc.server.WriteTimeout)
	require.Equal(t, defaultIdleTimeout, svc.server.IdleTimeout)
	require.Equal(t, defaultReadHeaderTimeout, svc.server.ReadHeaderTimeout)
}

func TestHTTPServiceServeAndStop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "0"}, handler)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.serve(context.Background(), ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
	require.NoError(t, <-done)
}

func TestHTTPServiceNilSafe(t *testing.T) {
	var svc *HTTPService
	require.Error(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/acblink/internal/config"
	"github.com/ManuGH/acblink/internal/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("listen timeout")
}

func testServerConfig(addr string) config.APIConfig {
	return config.APIConfig{
		ListenAddr:      addr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler("ok")})
	require.NoError(t, err)

	_, err = NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: zerolog.Nop(), APIHandler: okHandler("ok")})
	require.ErrorIs(t, err, ErrMissingLogger)

	_, err = NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: log.WithComponent("test")})
	require.ErrorIs(t, err, ErrMissingAPIHandler)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler("ok")})
	require.NoError(t, err)
	require.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_ServesAndRunsHooksInReverseOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	apiAddr := reserveListenAddr(t)
	metricsAddr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(apiAddr), Deps{
		Logger:         log.WithComponent("test"),
		APIHandler:     okHandler("api"),
		MetricsHandler: okHandler("metrics"),
		MetricsAddr:    metricsAddr,
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	hook := func(name string) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	mgr.RegisterShutdownHook("first", hook("first"))
	mgr.RegisterShutdownHook("second", hook("second"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	require.NoError(t, waitForListen(apiAddr, 2*time.Second))
	require.NoError(t, waitForListen(metricsAddr, 2*time.Second))

	client := &http.Client{Timeout: 2 * time.Second}
	for addr, want := range map[string]string{apiAddr: "api", metricsAddr: "metrics"} {
		resp, err := client.Get("http://" + addr + "/")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, want, string(body))
	}
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second", "first"}, order)
	require.NoError(t, mgr.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManager_StartFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	mgr, err := NewManager(testServerConfig(ln.Addr().String()), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler("ok")})
	require.NoError(t, err)

	hookRan := false
	mgr.RegisterShutdownHook("cleanup", func(context.Context) error {
		hookRan = true
		return nil
	})

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
	assert.True(t, hookRan)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{Logger: log.WithComponent("test"), APIHandler: okHandler("ok")})
	require.NoError(t, err)
	boom := errors.New("boom")
	mgr.RegisterShutdownHook("bad", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
}

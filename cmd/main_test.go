package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigertix/tigertix/internal/config"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.False(t, opts.seed)

	opts, err = parseFlags([]string{"--seed"})
	require.NoError(t, err)
	assert.True(t, opts.seed)

	_, err = parseFlags([]string{"--bogus"})
	assert.Error(t, err)
}

func freePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return fmt.Sprint(l.Addr().(*net.TCPAddr).Port)
}

func TestRunServesSeededEventsAndShutsDown(t *testing.T) {
	cfg := &config.Config{
		Port:            freePort(t),
		Store:           config.StoreSQLite,
		SQLitePath:      filepath.Join(t.TempDir(), "database.sqlite"),
		SQLitePoolSize:  2,
		ShutdownTimeout: 5 * time.Second,
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, options{seed: true}, log) }()

	url := "http://127.0.0.1:" + cfg.Port
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(url+"/api/events/1/purchase", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(url+"/api/events/2/purchase", "application/json", strings.NewReader(`{"ticket_count": 51}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

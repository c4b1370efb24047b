package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/navigo-ai/navigo/pkg/gateway/config"
	gatewayserver "github.com/navigo-ai/navigo/pkg/gateway/server"
	"github.com/navigo-ai/navigo/pkg/gateway/tools/uitools"
)

func TestRunMain_ReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, gatewayDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		newGateway: func(cfg config.Config, logger *slog.Logger, deps gatewayserver.Dependencies) *gatewayserver.Server {
			t.Fatalf("newGateway should not be called when config load fails")
			return nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if got := stderr.String(); !strings.Contains(got, "boom") {
		t.Fatalf("stderr=%q, want startup error", got)
	}
}

func TestBuildHTTPServer_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
	}

	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v, want %v", srv.ReadHeaderTimeout, cfg.ReadHeaderTimeout)
	}
}

func TestUpstreamConfig_CarriesModelSettingsAndTools(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Model:           "gemini-live-2.5-flash-native-audio",
		Voice:           "Puck",
		Instruction:     "be helpful",
		APIKey:          "key",
		EventBufferSize: 32,
	}

	up := upstreamConfig(cfg)
	if up.Model != cfg.Model || up.Voice != cfg.Voice || up.Instruction != cfg.Instruction {
		t.Fatalf("upstream config = %+v", up)
	}
	if up.EventBuffer != 32 {
		t.Fatalf("EventBuffer = %d, want 32", up.EventBuffer)
	}
	if len(up.Tools) != len(uitools.Declarations()) {
		t.Fatalf("tools = %d declarations, want %d", len(up.Tools), len(uitools.Declarations()))
	}
}

func TestRunGateway_ShutsDownOnSignal(t *testing.T) {
	t.Parallel()

	sigCh := make(chan chan<- os.Signal, 1)
	deps := gatewayDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{
				Addr:                "127.0.0.1:0",
				Model:               "gemini-live-2.5-flash-native-audio",
				Voice:               "Puck",
				ReadHeaderTimeout:   time.Second,
				ShutdownGracePeriod: time.Second,
			}, nil
		},
		newGateway: gatewayserver.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			sigCh <- c
		},
		signalStop: func(c chan<- os.Signal) {},
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	done := make(chan error, 1)
	go func() { done <- runGateway(context.Background(), logger, deps) }()

	select {
	case c := <-sigCh:
		c <- syscall.SIGTERM
	case <-time.After(2 * time.Second):
		t.Fatalf("signal channel was never registered")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runGateway error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runGateway did not stop after signal")
	}
}

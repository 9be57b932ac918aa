// Command pingpongdemo wires a live Bus with two ping/pong actors, an
// optional trace recorder, and a debug WebSocket server on :8089, to
// illustrate the full stack end to end.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abrahamvado/messagebus/internal/bus"
	"github.com/abrahamvado/messagebus/internal/config"
	"github.com/abrahamvado/messagebus/internal/envelope"
	"github.com/abrahamvado/messagebus/internal/logging"
	"github.com/abrahamvado/messagebus/internal/pingpong"
	"github.com/abrahamvado/messagebus/internal/trace"
	"github.com/abrahamvado/messagebus/internal/traceserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging setup failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	var b *bus.Bus
	hooks := envelope.Multi{}

	var recorder *trace.Recorder
	if cfg.TraceEnabled {
		writer, _, err := trace.NewWriter(cfg.TraceDir, "pingpongdemo", cfg.QueueCount, cfg.TickInterval, nil)
		if err != nil {
			log.Error("failed to open trace writer", logging.Error(err))
		} else {
			depths := func() []int { return b.LaneDepths() }
			recorder = trace.NewRecorder(writer, depths, log)
			hooks = append(hooks, recorder)
			defer recorder.Close()
		}
	}

	debugServer := traceserver.New(log)
	hooks = append(hooks, debugServer)
	debugHandler := logging.HTTPTraceMiddleware(log)(debugServer)

	b = bus.NewWithConfig(bus.Config{
		TickInterval: cfg.TickInterval,
		QueueCount:   cfg.QueueCount,
		Hook:         hooks,
		Logger:       log,
	})

	topPriority := cfg.QueueCount - 1
	if topPriority < 0 {
		topPriority = 0
	}
	b.Subscribe("ping", pingpong.New("ping", "pong", 2*cfg.TickInterval, topPriority))
	b.Subscribe("pong", pingpong.New("pong", "ping", 2*cfg.TickInterval, topPriority))

	httpServer := &http.Server{Addr: ":8089", Handler: debugHandler}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("debug server failed", logging.Error(err))
		}
	}()

	if _, err := b.Start(); err != nil {
		log.Fatal("failed to start bus", logging.Error(err))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	b.Stop()
	_ = httpServer.Close()
	time.Sleep(100 * time.Millisecond)
}

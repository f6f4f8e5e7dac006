// Command rokoko-bridge turns PlayStation controller button presses into
// Rokoko Studio calibration and recording commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/rokoko-bridge/internal/announce"
	"github.com/sweeney/rokoko-bridge/internal/bridge"
	"github.com/sweeney/rokoko-bridge/internal/config"
	"github.com/sweeney/rokoko-bridge/internal/logging"
	"github.com/sweeney/rokoko-bridge/internal/pad"
	"github.com/sweeney/rokoko-bridge/internal/probe"
	"github.com/sweeney/rokoko-bridge/internal/rokoko"
	"github.com/sweeney/rokoko-bridge/internal/status"
	"github.com/sweeney/rokoko-bridge/internal/web"
)

func main() {
	cfg, err := config.Load("rokoko-bridge", os.Args[1:])
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "rokoko-bridge: %v\n", err)
		}
		os.Exit(2)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rokoko-bridge: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	mapping, err := cfg.Mapping()
	if err != nil {
		return err
	}

	reader := pad.NewReader()
	defer reader.Close()

	// The first poll decides startup: without a controller the bridge is
	// useless, so bail out unless the operator asked to keep searching.
	initial := reader.Poll()
	if !hasAttach(initial) && !cfg.WaitController {
		return errors.New("no controller detected (pass -wait-controller to keep searching)")
	}

	tracker := status.NewTracker(time.Now(), cfg.Settings())
	hub := web.NewHub()

	caller := rokoko.NewClient(cfg.StudioHost, cfg.StudioPort, cfg.APIKey)
	engine := bridge.NewEngine(caller, mapping, cfg.Debounce, time.Now)

	sinks := []bridge.Sink{tracker, hub, consoleSink{log: log}}

	var announcer announce.Announcer
	if cfg.Broker != "" {
		mqttLog := logging.WithComponent(log, "mqtt")
		a, err := announce.NewRealAnnouncer(cfg.Broker, "rokoko-bridge", announce.NewTopics(cfg.TopicPrefix), mqttLog)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		announcer = a
		defer announcer.Close()
		sinks = append(sinks, announce.NewSink(announcer, mqttLog))

		snap := tracker.Snapshot()
		startup := announce.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := announcer.AnnounceSystem(startup); err != nil {
			log.Warn().Err(err).Msg("failed to announce startup")
		} else {
			log.Info().Msg("announced startup")
		}
	}

	drained := make(chan struct{})
	go func() {
		bridge.Drain(engine.Updates(), sinks...)
		close(drained)
	}()

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("status panel listening")
	}

	monCtx, cancelMonitor := context.WithCancel(context.Background())
	defer cancelMonitor()
	monitor := probe.NewMonitor(probe.NewTCPProber(cfg.Addr()), cfg.ProbeInterval, func(up bool) {
		engine.PostConnectivity(up, cfg.Addr())
	})
	monitorDone := make(chan struct{})
	go func() {
		monitor.Run(monCtx)
		close(monitorDone)
	}()

	log.Info().
		Str("studio", cfg.Addr()).
		Dur("debounce", cfg.Debounce).
		Dur("poll", cfg.PollInterval).
		Msg("bridge started")

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	reason := runLoop(reader, engine, log, ticker.C, sigCh, initial)

	// Stop probing before closing the engine so no connectivity update can
	// land on a closed queue.
	cancelMonitor()
	<-monitorDone

	// Close waits for in-flight dispatches, then the drain goroutine flushes
	// what is left so the shutdown snapshot carries final counts.
	engine.Close()
	<-drained

	if announcer != nil {
		snap := tracker.Snapshot()
		shutdown := announce.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "SHUTDOWN",
			Reason:     reason,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
		}
		if err := announcer.AnnounceSystem(shutdown); err != nil {
			log.Warn().Err(err).Msg("failed to announce shutdown")
		} else {
			log.Info().Msg("announced shutdown")
		}
	}

	return nil
}

// runLoop feeds controller events to the engine until a shutdown signal
// arrives, then returns the signal name.
func runLoop(reader pad.Reader, engine *bridge.Engine, log zerolog.Logger, tick <-chan time.Time, sig <-chan os.Signal, initial []pad.Event) string {
	for _, ev := range initial {
		engine.HandleEvent(ev)
	}

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Info().Str("signal", name).Msg("shutting down")
			return name
		case <-tick:
			for _, ev := range reader.Poll() {
				engine.HandleEvent(ev)
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func hasAttach(events []pad.Event) bool {
	for _, ev := range events {
		if ev.Type == pad.EventAttached {
			return true
		}
	}
	return false
}

// consoleSink renders the activity feed through zerolog. Status updates are
// skipped: the engine pairs every state change with a log line, so printing
// both would say everything twice.
type consoleSink struct {
	log zerolog.Logger
}

func (s consoleSink) Log(u bridge.Update) {
	var ev *zerolog.Event
	switch u.Severity {
	case bridge.SeverityError:
		ev = s.log.Error()
	default:
		ev = s.log.Info()
	}
	if u.Action != "" {
		ev = ev.Str("action", string(u.Action)).Str("result", string(u.Result))
	}
	ev.Msg(u.Text)
}

func (s consoleSink) Status(bridge.Update) {}

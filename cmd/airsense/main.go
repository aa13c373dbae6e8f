// Command airsense drives the air-quality indicator: it polls the four
// buttons, runs the mode state machine, renders the RGB led, and
// publishes telemetry to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/airsense/internal/airsensor"
	"github.com/sweeney/airsense/internal/buttons"
	"github.com/sweeney/airsense/internal/config"
	"github.com/sweeney/airsense/internal/controller"
	"github.com/sweeney/airsense/internal/gpio"
	"github.com/sweeney/airsense/internal/led"
	"github.com/sweeney/airsense/internal/logger"
	"github.com/sweeney/airsense/internal/morse"
	"github.com/sweeney/airsense/internal/mqtt"
	"github.com/sweeney/airsense/internal/pubsub"
	"github.com/sweeney/airsense/internal/rotation"
	"github.com/sweeney/airsense/internal/status"
	"github.com/sweeney/airsense/internal/timer"
	"github.com/sweeney/airsense/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (empty for defaults)")
	broker := flag.String("broker", "", "MQTT broker URI (overrides config)")
	poll := flag.Duration("poll", 0, "Button polling interval (overrides config)")
	debounce := flag.Duration("debounce", 0, "Debounce duration (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	simSensor := flag.Bool("sim-sensor", false, "Generate synthetic air-quality scores (no sensor hardware)")
	printState := flag.Bool("print-state", false, "Print current button state and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *broker, *poll, *debounce, *httpAddr, *logLevel)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	log := logger.New(level)
	defer log.Sync()

	if err := run(cfg, *heartbeat, *simSensor, *printState, log); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyOverrides copies non-zero flag values over the loaded config.
func applyOverrides(cfg *config.Config, broker string, poll, debounce time.Duration, httpAddr, logLevel string) {
	if broker != "" {
		cfg.Broker = broker
	}
	if poll > 0 {
		cfg.PollInterval = poll
	}
	if debounce > 0 {
		cfg.Debounce = debounce
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

func run(cfg *config.Config, heartbeat time.Duration, simSensor, printState bool, log *zap.SugaredLogger) error {
	reader, err := gpio.NewRealReader(cfg.Pins.ButtonA, cfg.Pins.ButtonB, cfg.Pins.ButtonX, cfg.Pins.ButtonY)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		s, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("A: %s, B: %s, X: %s, Y: %s\n",
			stateString(s.A), stateString(s.B), stateString(s.X), stateString(s.Y))
		return nil
	}

	driver, err := led.NewRealDriver(cfg.Pins.LedRed, cfg.Pins.LedGreen, cfg.Pins.LedBlue)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer driver.Close()

	bus := pubsub.NewBus()
	out := led.NewOutput(driver, controller.DefaultBrightness)
	countdown := timer.New(bus)
	defer countdown.Cancel()

	ctrl := controller.New(bus, out, countdown, log)

	enc := morse.New(bus, cfg.MorseUnit, log)
	defer enc.Stop()

	airsensor.NewMonitor(bus, ctrl)

	rot := rotation.New(bus, rotation.DefaultInterval)
	defer rot.Stop()

	if simSensor {
		sim := airsensor.NewSimulator(bus, airsensor.DefaultSimInterval)
		defer sim.Stop()
		log.Infof("simulated sensor enabled")
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:     cfg.PollInterval.Milliseconds(),
		DebounceMs: cfg.Debounce.Milliseconds(),
		Broker:     cfg.Broker,
		HTTPPort:   cfg.HTTPAddr,
	})

	// Registered after the controller so the snapshot reflects the
	// transition the event just caused.
	bus.Subscribe(func(pubsub.Event) {
		score := ctrl.LastScore()
		tracker.SetDevice(ctrl.Mode().String(), ctrl.Alarmed(), ctrl.Threshold(), score, airsensor.Describe(score))
	})

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.Broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()

		bridge := mqtt.NewBridge(bus, pub, ctrl, cfg.ScoreInterval, log)
		defer bridge.Close()

		publisher = pub
		mqttStatus = pub
		tracker.SetMQTTConnected(pub.IsConnected())

		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Warnf("failed to publish startup event: %v", err)
		} else {
			log.Infof("published startup event")
		}
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Infof("started: poll=%v debounce=%v broker=%q heartbeat=%v", cfg.PollInterval, cfg.Debounce, cfg.Broker, heartbeat)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(reader, bus, publisher, mqttStatus, tracker, cfg.Debounce, heartbeat, log, time.Now, ticker.C, sigCh)
}

// runLoop polls the buttons until a termination signal arrives. publisher
// may be nil when telemetry is disabled.
func runLoop(reader gpio.Reader, bus *pubsub.Bus, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, debounce, heartbeat time.Duration, log *zap.SugaredLogger, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := buttons.NewDetector(debounce)
	lastHeartbeat := startTime

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  now(),
					Event:      "SHUTDOWN",
					Reason:     signalName,
					Retained:   true,
					RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Warnf("failed to publish shutdown event: %v", err)
				} else {
					log.Infof("published shutdown event")
				}
			}
			return nil

		case <-tick:
			t := now()
			s, err := reader.Read()
			if err != nil {
				log.Warnf("gpio read error: %v", err)
				continue
			}

			events := detector.Process(buttons.Sample{A: s.A, B: s.B, X: s.X, Y: s.Y, Time: t})
			for _, ev := range events {
				log.Debugf("button event: %s on=%v", ev.Kind, ev.On)
				bus.Publish(ev)
			}

			tracker.SetButtons(detector.IsBaselined(), detector.CountsSnapshot())
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			if publisher == nil || heartbeat <= 0 || !detector.IsBaselined() {
				continue
			}
			if t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t

			counts := detector.CountsSnapshot()
			snap := tracker.Snapshot()
			log.Infof("heartbeat: uptime=%v a=%d b=%d x=%d y=%d",
				t.Sub(startTime), counts.A, counts.B, counts.X, counts.Y)

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
				Heartbeat: &mqtt.HeartbeatInfo{
					UptimeSeconds: int64(t.Sub(startTime).Seconds()),
					PressCounts:   mqtt.HeartbeatCounts{A: counts.A, B: counts.B, X: counts.X, Y: counts.Y},
				},
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Warnf("heartbeat publish error: %v", err)
			}
		}
	}
}

func stateString(on bool) string {
	if on {
		return "DOWN"
	}
	return "UP"
}

// Package main starts thumbscroll: a webcam watches for a held thumb and
// scrolls the focused window while it stays up or down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ayusman/thumbscroll/internal/app"
	"github.com/ayusman/thumbscroll/internal/capture"
	"github.com/ayusman/thumbscroll/internal/config"
	"github.com/ayusman/thumbscroll/internal/detector"
	"github.com/ayusman/thumbscroll/internal/emitter"
	"github.com/ayusman/thumbscroll/internal/gesture"
	"github.com/ayusman/thumbscroll/internal/input"
	"github.com/ayusman/thumbscroll/internal/logging"
	"github.com/ayusman/thumbscroll/internal/plugin"
	"github.com/ayusman/thumbscroll/internal/render"
	"github.com/ayusman/thumbscroll/internal/server"
	"github.com/ayusman/thumbscroll/internal/store"
	"github.com/ayusman/thumbscroll/internal/tray"
)

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		log.Fatalf("configure logging: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("thumbscroll failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scroller, err := newScroller(cfg.Scroll, logger)
	if err != nil {
		return err
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		ModelPath:        cfg.Detector.ModelPath,
		MaxHands:         cfg.Detector.MaxHands,
		MinDetectionConf: cfg.Detector.MinDetectionConf,
		MinPresenceConf:  cfg.Detector.MinPresenceConf,
		MinTrackingConf:  cfg.Detector.MinTrackingConf,
		Mode:             detector.ModeLiveStream,
	})
	if err != nil {
		return fmt.Errorf("create landmark source: %w", err)
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		logger.Info("recording gesture events", "path", cfg.Store.Path)
	}

	var publisher app.Publisher
	if cfg.MQTT.Broker != "" {
		em := emitter.NewMQTTEmitter(emitter.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		}, logger)
		if err := em.Connect(ctx); err != nil {
			logger.Warn("mqtt broker unavailable, events will not be published", "error", err)
		}
		defer em.Close()
		publisher = em
	}

	var (
		frames    *server.FrameBuffer
		landmarks *server.LandmarksHub
	)
	if cfg.HTTP.Addr != "" {
		frames = server.NewFrameBuffer()
		landmarks = server.NewLandmarksHub(logger)
	}

	// The tray owns the main thread, so it cannot share it with a window.
	var display render.Display = render.Headless{}
	if !cfg.Display.Headless && !cfg.Tray {
		display = render.NewWindow(cfg.Display.Title)
	}

	var tr *tray.Tray
	if cfg.Tray {
		tr = tray.New(cfg.Gesture.Enabled)
	}

	a, err := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.Device,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
		}),
		Detector:  det,
		Scroller:  scroller,
		Display:   display,
		Store:     st,
		Publisher: publisher,
		Frames:    frames,
		Landmarks: landmarks,
		OnTransition: func(t gesture.Transition) {
			if tr != nil {
				tr.SetGesture(t.To)
			}
		},
		OnEnabled: func(enabled bool) {
			if tr != nil {
				tr.SetEnabled(enabled)
			}
		},
		ScrollInterval:  cfg.Gesture.ScrollInterval,
		JoinTimeout:     cfg.Gesture.JoinTimeout,
		ShutdownTimeout: cfg.Gesture.ShutdownTimeout,
		TimestampStep:   cfg.Gesture.TimestampStep,
		RelayCapacity:   cfg.Gesture.RelayCapacity,
		Enabled:         cfg.Gesture.Enabled,
		Logger:          logger,
	})
	if err != nil {
		det.Close()
		return fmt.Errorf("create app: %w", err)
	}

	serverDone := make(chan error, 1)
	if cfg.HTTP.Addr != "" {
		srv := server.New(server.Config{
			StaticDir:  cfg.HTTP.StaticDir,
			Store:      st,
			Controller: a,
			Frames:     frames,
			Landmarks:  landmarks,
			Logger:     logger,
		})
		go func() { serverDone <- srv.Run(ctx, cfg.HTTP.Addr) }()
	} else {
		serverDone <- nil
	}

	var runErr error
	if tr == nil {
		runErr = a.Run(ctx)
	} else {
		runErr = runWithTray(ctx, cancel, a, tr, cfg.HTTP.Addr, logger)
	}

	cancel()
	if err := <-serverDone; err != nil && runErr == nil {
		runErr = fmt.Errorf("http server: %w", err)
	}
	return runErr
}

// runWithTray runs the pipeline in the background and the tray on the
// calling goroutine until either one quits.
func runWithTray(ctx context.Context, cancel context.CancelFunc, a *app.App, tr *tray.Tray, httpAddr string, logger *slog.Logger) error {
	tr.SetEnabled(a.Enabled())
	tr.OnToggle(func(enabled bool) {
		if err := a.SetEnabled(enabled); err != nil {
			logger.Warn("toggle gesture detection", "error", err)
		}
	})
	tr.OnStatus(func() {
		if httpAddr == "" {
			logger.Warn("status page needs -http")
			return
		}
		if err := openBrowser(statusURL(httpAddr)); err != nil {
			logger.Warn("open status page", "error", err)
		}
	})
	tr.OnQuit(cancel)

	done := make(chan error, 1)
	go func() {
		err := a.Run(ctx)
		tr.Quit()
		done <- err
	}()

	tr.Run()
	cancel()
	return <-done
}

func newScroller(cfg config.ScrollConfig, logger *slog.Logger) (gesture.Scroller, error) {
	switch cfg.Backend {
	case config.BackendPlugin:
		manager := plugin.NewManager(cfg.PluginDir, logger)
		if err := manager.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		s, err := plugin.NewScroller(manager, cfg.Plugin, plugin.NewExecutor(cfg.PluginTimeout), logger)
		if err != nil {
			return nil, fmt.Errorf("scroll plugin: %w", err)
		}
		logger.Info("scrolling through plugin", "plugin", cfg.Plugin, "dir", cfg.PluginDir)
		return s, nil
	default:
		return input.NewRobotScroller(logger), nil
	}
}

// statusURL turns a listen address such as ":8080" into a local URL.
func statusURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

// The preview window and the tray both need the OS main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	flags := config.NewFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(2)
	}

	closeLog, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Mudra stopped")
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	log.Info().
		Int("camera", cfg.Camera.Device).
		Str("dispatch", string(cfg.Dispatch)).
		Str("tracking", string(cfg.Gesture.Tracking)).
		Msg("Mudra - Hand Gesture Control")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Database != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		var err error
		st, err = store.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		defer st.Close()
	}

	bindings, err := resolveBindings(cfg, st)
	if err != nil {
		return err
	}

	dispatcher, err := newDispatcher(cfg, bindings)
	if err != nil {
		return err
	}

	var display app.Display
	if cfg.ShowWindow() {
		display = overlay.NewWindow(cfg.WindowTitle, overlay.DefaultQuitKey)
	}

	application := app.New(app.Config{
		Camera:       capture.NewCamera(cfg.Camera),
		Detector:     newDetector(cfg.Detector),
		Classifier:   gesture.NewClassifier(cfg.Gesture),
		Dispatcher:   dispatcher,
		Display:      display,
		Store:        st,
		CameraDevice: cfg.Camera.Device,
	})

	if cfg.Listen != "" {
		hub := server.NewHub()
		application.AddObserver(hub)

		srv := server.New(server.Config{
			Store:       st,
			Hub:         hub,
			Status:      application,
			Bindings:    action.DefaultBindings().Merge(cfg.Bindings),
			BindingSink: dispatcher,
		})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
				log.Error().Err(err).Str("addr", cfg.Listen).Msg("Status server failed")
			}
		}()
	}

	if !cfg.Tray {
		return application.Run(ctx)
	}
	return runWithTray(ctx, stop, cfg, application)
}

// runWithTray runs the session in the background while the tray owns the
// main goroutine.
func runWithTray(ctx context.Context, stop context.CancelFunc, cfg config.Config, application *app.App) error {
	t := tray.New()
	application.AddObserver(t)
	t.OnToggle(application.SetEnabled)
	t.OnQuit(stop)
	if cfg.Listen != "" {
		t.OnStatus(func() { openBrowser("http://" + cfg.Listen + "/api/health") })
	}

	done := make(chan error, 1)
	go func() {
		err := application.Run(ctx)
		t.Quit()
		done <- err
	}()
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	stop()
	return <-done
}

// resolveBindings layers the config file and then the stored overrides over
// the default bindings.
func resolveBindings(cfg config.Config, st *store.Store) (action.Bindings, error) {
	bindings := cfg.KeyBindings()
	if st == nil {
		return bindings, nil
	}

	stored, err := st.Bindings().List()
	if err != nil {
		return nil, fmt.Errorf("failed to load bindings: %w", err)
	}
	overrides := action.Bindings{}
	for _, b := range stored {
		overrides[gesture.Kind(b.Gesture)] = action.Binding{Key: b.Key, Modifiers: b.Modifiers}
	}
	bindings = bindings.Merge(overrides)
	if err := bindings.Validate(); err != nil {
		return nil, fmt.Errorf("stored bindings: %w", err)
	}
	return bindings, nil
}

func newDispatcher(cfg config.Config, bindings action.Bindings) (action.Multi, error) {
	var m action.Multi

	if cfg.Dispatch == config.DispatchKeyboard || cfg.Dispatch == config.DispatchBoth {
		m = append(m, action.NewKeyboardDispatcher(bindings))
	}

	if cfg.Dispatch == config.DispatchPlugin || cfg.Dispatch == config.DispatchBoth {
		manager := plugin.NewManager(cfg.Plugin.Dir)
		if err := manager.Discover(); err != nil {
			return nil, fmt.Errorf("failed to discover plugins: %w", err)
		}
		if _, err := manager.Get(cfg.Plugin.Name); err != nil {
			return nil, fmt.Errorf("plugin %q in %s: %w", cfg.Plugin.Name, cfg.Plugin.Dir, err)
		}
		m = append(m, action.NewPluginDispatcher(manager, plugin.NewExecutor(cfg.Plugin.Timeout), cfg.Plugin.Name, bindings))
	}

	return m, nil
}

// newDetector starts MediaPipe, or falls back to a detector that never sees
// a hand so the preview still works.
func newDetector(cfg detector.Config) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err == nil {
		log.Info().Msg("Using MediaPipe hand detection")
		return mp
	}
	if errors.Is(err, detector.ErrServiceNotFound) {
		log.Warn().Err(err).Msg("MediaPipe not available, no hands will be detected")
	} else {
		log.Warn().Err(err).Msg("Failed to set up MediaPipe, no hands will be detected")
	}
	return detector.NewMockDetector()
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
	}
}

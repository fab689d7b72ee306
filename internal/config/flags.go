package config

import (
	"flag"

	"github.com/ayusman/mudra/internal/gesture"
)

// Flags holds the command line overrides. Only flags that were set on the
// command line are applied.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath string

	camera    int
	headless  bool
	tray      bool
	listen    string
	db        string
	pluginDir string
	dispatch  string
	tracking  string
	logLevel  string
	logFile   string
}

// NewFlags registers the mudra flags on fs.
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "path to a YAML config file")
	fs.IntVar(&f.camera, "camera", 0, "camera device index")
	fs.BoolVar(&f.headless, "headless", false, "run without the preview window")
	fs.BoolVar(&f.tray, "tray", false, "show a system tray icon (implies -headless)")
	fs.StringVar(&f.listen, "listen", "", "serve the status API on this address, e.g. 127.0.0.1:8080")
	fs.StringVar(&f.db, "db", "", "journal sessions and gestures to this SQLite file")
	fs.StringVar(&f.pluginDir, "plugin-dir", "", "directory to discover plugins in")
	fs.StringVar(&f.dispatch, "dispatch", "", "gesture dispatch: keyboard, plugin, both or none")
	fs.StringVar(&f.tracking, "tracking", "", "swipe tracking: shared or per-hand")
	fs.StringVar(&f.logLevel, "log-level", "", "log level")
	fs.StringVar(&f.logFile, "log-file", "", "also write logs to this rotated file")
	return f
}

// Apply copies every flag given on the command line into cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "camera":
			cfg.Camera.Device = f.camera
		case "headless":
			cfg.Headless = f.headless
		case "tray":
			cfg.Tray = f.tray
		case "listen":
			cfg.Listen = f.listen
		case "db":
			cfg.Database = f.db
		case "plugin-dir":
			cfg.Plugin.Dir = f.pluginDir
		case "dispatch":
			cfg.Dispatch = DispatchMode(f.dispatch)
		case "tracking":
			cfg.Gesture.Tracking = gesture.TrackingMode(f.tracking)
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-file":
			cfg.Log.File = f.logFile
		}
	})
}

// Resolve loads the config file named by -config, or Default when none was
// given, and applies the command line overrides.
func (f *Flags) Resolve() (Config, error) {
	cfg := Default()
	if f.ConfigPath != "" {
		loaded, err := Load(f.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	f.Apply(&cfg)
	return cfg, cfg.Validate()
}

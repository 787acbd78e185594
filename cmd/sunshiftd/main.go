package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("sunshiftd v%s\n", version)
	fmt.Println("Solar-schedule daemon for the hyprsunset blue-light filter")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  sunshiftd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that computes sunrise/sunset for a configured location and keeps")
	fmt.Println("  the hyprsunset blue-light filter in sync: active from sunset to sunrise,")
	fmt.Println("  inactive during the day. Manual overrides (force-on/force-off/auto) are")
	fmt.Println("  accepted over a unix IPC socket and expire at local midnight.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to TOML config file (default ~/.config/sunshift/config.toml;")
	fmt.Println("        a missing default file falls back to built-in defaults)")
	fmt.Println()
	fmt.Println("  -temperature int")
	fmt.Printf("        Filter color temperature in Kelvin (default %d)\n", defaultTemperatureK)
	fmt.Println()
	fmt.Println("  -latitude float / -longitude float / -altitude float")
	fmt.Printf("        Observer position (default %.4f, %.4f, %.0fm)\n", defaultLatitude, defaultLongitude, defaultAltitudeM)
	fmt.Println()
	fmt.Println("  -timezone string")
	fmt.Println("        IANA zone for local day boundaries (default: system local zone)")
	fmt.Println()
	fmt.Println("  -driver-socket string")
	fmt.Println("        hyprsunset control socket (default: discovered from the Hyprland session)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -state-port int")
	fmt.Printf("        State WebSocket port on localhost (default %d)\n", defaultStateWSPort)
	fmt.Println()
	fmt.Println("  -no-state")
	fmt.Println("        Disable the state WebSocket feed")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-file string")
	fmt.Println("        Log file: \"auto\" ($XDG_RUNTIME_DIR/sunshift.log), \"none\", or a path")
	fmt.Println()
	fmt.Println("  -version / -help")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with config file defaults")
	fmt.Println("  sunshiftd")
	fmt.Println()
	fmt.Println("  # Override position for a trip")
	fmt.Println("  sunshiftd -latitude 52.52 -longitude 13.405 -altitude 34")
	fmt.Println()
	fmt.Println("  # Force the filter on for the evening")
	fmt.Println("  sunshift-ctl force-on")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - hyprsunset must be installed and running inside a Hyprland session")
	fmt.Println("  - Overrides are not persisted; a restart returns to automatic mode")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath   = flag.String("config", "", "Path to TOML config file")
		temperature  = flag.Int("temperature", defaultTemperatureK, "Filter color temperature in Kelvin")
		latitude     = flag.Float64("latitude", defaultLatitude, "Observer latitude in degrees")
		longitude    = flag.Float64("longitude", defaultLongitude, "Observer longitude in degrees")
		altitude     = flag.Float64("altitude", defaultAltitudeM, "Observer altitude in meters")
		timezone     = flag.String("timezone", "", "IANA zone name for local day boundaries")
		driverSocket = flag.String("driver-socket", "", "hyprsunset control socket path")
		ipcSocket    = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		statePort    = flag.Int("state-port", defaultStateWSPort, "State WebSocket port")
		noState      = flag.Bool("no-state", false, "Disable the state WebSocket feed")
		logLevelStr  = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		logFile      = flag.String("log-file", "auto", "Log file: auto, none, or a path")
		showVersion  = flag.Bool("version", false, "Print version and exit")
		showHelp     = flag.Bool("help", false, "Print help message")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Load config: explicit -config must exist; the default path may not.
	cfg := DefaultConfig()
	path := *configPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	loaded, err := LoadConfigFile(path)
	switch {
	case err == nil:
		cfg = loaded
	case !explicit && errors.Is(err, fs.ErrNotExist):
		// No config file: defaults apply.
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Flags override the file only when actually set on the command line.
	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "temperature":
			overrides.Temperature = temperature
		case "latitude":
			overrides.Latitude = latitude
		case "longitude":
			overrides.Longitude = longitude
		case "altitude":
			overrides.Altitude = altitude
		case "timezone":
			overrides.Timezone = timezone
		case "driver-socket":
			overrides.DriverSocketPath = driverSocket
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocket
		case "state-port":
			overrides.StatePort = statePort
		case "no-state":
			enabled := !*noState
			overrides.StateEnabled = &enabled
		case "log-level":
			overrides.LogLevel = logLevelStr
		case "log-file":
			overrides.LogFile = logFile
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid configuration:", err)
		os.Exit(1)
	}

	tz := time.Local
	if cfg.Timezone != "" {
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid timezone %q: %v\n", cfg.Timezone, err)
			os.Exit(1)
		}
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger, closeLog := setupLogger(level, resolveLogFile(cfg.Logging.File))
	defer closeLog()

	// Single instance per session.
	lock, err := acquireRuntimeLock(lockFilePath())
	if err != nil {
		logger.Error("failed to acquire instance lock", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release instance lock", "error", err)
		}
	}()

	// Locate and wait for the external filter tool.
	if err := VerifyHyprsunsetInstalled(); err != nil {
		logger.Error("hyprsunset check failed", "error", err)
		os.Exit(1)
	}
	driverSocketPath := cfg.Driver.SocketPath
	if driverSocketPath == "" {
		driverSocketPath, err = DiscoverHyprsunsetSocket()
		if err != nil {
			logger.Error("failed to locate hyprsunset socket", "error", err)
			os.Exit(1)
		}
	}
	if err := WaitForSocket(driverSocketPath, driverSocketWaitTries, driverSocketWaitDelayMS*time.Millisecond, logger); err != nil {
		logger.Error("hyprsunset socket unavailable", "error", err)
		os.Exit(1)
	}

	driver := NewHyprsunsetClient(driverSocketPath, cfg.Driver.TimeoutMS, logger)
	resolver := NewStateResolver(cfg.Location(), tz)
	overridesCtl := NewOverrideController(tz, logger)
	scheduler := NewScheduler(resolver, overridesCtl, driver, cfg.Temperature, logger)

	logger.Info("starting sunshiftd",
		"version", version,
		"latitude", cfg.Latitude,
		"longitude", cfg.Longitude,
		"altitude_m", cfg.Altitude,
		"temperature_k", cfg.Temperature,
		"timezone", tz.String(),
		"driver_socket", driverSocketPath,
		"ipc_socket", cfg.IPC.SocketPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan Event, 16)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.State.Enabled {
		stateServer := NewStateServer(logger, HubConfig{})
		scheduler.SetStatusSink(stateServer.Publish)
		g.Go(func() error {
			stateServer.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			return runStateServer(gctx, cfg.State.Port, stateServer, logger)
		})
	}

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})
	g.Go(func() error {
		return runEventPump(gctx, events, overridesCtl, logger)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

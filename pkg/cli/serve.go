package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gettrapd/trapd/internal/cliconfig"
	"github.com/gettrapd/trapd/pkg/cli/internal/output"
	"github.com/gettrapd/trapd/pkg/cli/internal/ports"
	"github.com/gettrapd/trapd/pkg/config"
	"github.com/gettrapd/trapd/pkg/logging"
	"github.com/gettrapd/trapd/pkg/server"
	"github.com/gettrapd/trapd/pkg/sink"

	"github.com/spf13/cobra"
)

// childEnvVar marks the re-executed daemon child so it skips detaching
// again.
const childEnvVar = "TRAPD_CHILD"

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

// serveCmd represents the serve command — the foreground capture server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the capture server (foreground)",
	Long: `Start the capture server. Every request it receives is answered with
"OK" and recorded to the configured sink: a local capture file, a remote
collection endpoint, or stdout.

A second listener serves the operational endpoints /health and /metrics,
kept off the capture port so the trap can record requests to any path.`,
	Example: `  # Start with defaults (capture on :4180, ops on :4181, capture.log)
  trapd serve

  # Custom capture file and port
  trapd serve --port 8080 --file /var/log/trapd/capture.log

  # Forward captures to a collection endpoint
  trapd serve --remote-url https://collector.example.com/ingest

  # Print captures to stdout, no ops listener
  trapd serve --stdout --no-ops

  # Start from a config file
  trapd serve --config trapd.yaml

  # Start in daemon/background mode
  trapd serve -d`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServeWithFlags(cmd, &serveFlagVals)
	},
}

func initServeCmd() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals

	// Listener flags
	serveCmd.Flags().StringVarP(&f.configFile, "config", "f", "", "Path to configuration file")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", config.DefaultPort, "Capture listener port")
	serveCmd.Flags().StringVar(&f.host, "host", "", "Interface to bind (default: all interfaces)")
	serveCmd.Flags().IntVar(&f.opsPort, "ops-port", config.DefaultOpsPort, "Operational listener port")
	serveCmd.Flags().BoolVar(&f.noOps, "no-ops", false, "Disable the operational listener")

	// Sink flags (mutually exclusive)
	serveCmd.Flags().StringVar(&f.captureFile, "file", "", "Capture file path (file sink)")
	serveCmd.Flags().StringVar(&f.remoteURL, "remote-url", "", "Collection endpoint URL (remote sink)")
	serveCmd.Flags().BoolVar(&f.stdout, "stdout", false, "Print captures to stdout (stdout sink)")

	// Logging flags
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")

	// Daemon/detach flags
	serveCmd.Flags().BoolVarP(&f.detach, "detach", "d", false, "Run server in background (daemon mode)")
	serveCmd.Flags().StringVar(&f.pidFile, "pid-file", "", "Path to PID file (default: ~/.trapd/trapd.pid)")
}

func init() {
	initServeCmd()
}

// serveFlags holds all parsed command-line flags for the serve command.
type serveFlags struct {
	configFile string
	port       int
	host       string
	opsPort    int
	noOps      bool

	captureFile string
	remoteURL   string
	stdout      bool

	logLevel  string
	logFormat string

	detach  bool
	pidFile string
}

// runServeWithFlags is the core serve logic called by the cobra command.
func runServeWithFlags(cmd *cobra.Command, flags *serveFlags) error {
	// Handle detach mode (daemon) - re-exec as child and exit
	if flags.detach && os.Getenv(childEnvVar) == "" {
		return daemonize(resolvePIDPathEarly(cmd, flags))
	}

	if err := validateServeFlags(cmd.Flags().Changed, flags); err != nil {
		return err
	}

	cfg, sources, err := resolveServeConfig(cmd.Flags().Changed, flags)
	if err != nil {
		return err
	}

	if err := checkPortConflicts(cfg); err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
	})
	log.Debug("resolved configuration", "sources", sources)

	srv := server.New(cfg,
		server.WithLogger(log.With("component", "server")),
		server.WithVersion(Version),
	)

	if err := srv.Start(); err != nil {
		if isAddrInUseError(err) {
			return fmt.Errorf("%w — try a different port with --port/--ops-port or check what's using it", err)
		}
		return err
	}

	pidPath := cfg.PIDFile
	if pidPath == "" {
		pidPath = DefaultPIDPath()
	}
	if err := writePIDFileForServe(pidPath, cfg, sinkKind(cfg)); err != nil {
		_ = srv.Stop()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	printServeStartupMessage(srv, cfg)

	return runMainLoop(srv, pidPath)
}

// validateServeFlags validates flag values and combinations.
func validateServeFlags(changed func(string) bool, f *serveFlags) error {
	if f.port < 0 || f.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 0 and 65535", f.port)
	}
	if f.opsPort < 0 || f.opsPort > 65535 {
		return fmt.Errorf("invalid ops port %d: must be between 0 and 65535", f.opsPort)
	}

	sinkFlags := 0
	if changed("file") {
		sinkFlags++
	}
	if changed("remote-url") {
		sinkFlags++
	}
	if f.stdout {
		sinkFlags++
	}
	if sinkFlags > 1 {
		return errors.New("--file, --remote-url, and --stdout select the sink and cannot be combined")
	}

	return nil
}

// resolveServeConfig builds the effective configuration. Precedence is
// flags > environment > config file > defaults; sources records where
// each overridden setting came from.
func resolveServeConfig(changed func(string) bool, f *serveFlags) (*config.Config, map[string]string, error) {
	sources := make(map[string]string)

	// Config file: explicit flag, then TRAPD_CONFIG, then discovery in
	// the working directory.
	path := f.configFile
	if path == "" {
		path = cliconfig.ConfigFileFromEnv()
	}
	if path == "" {
		if found, ok := config.Discover("."); ok {
			path = found
		}
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
		sources["config"] = path
	} else {
		cfg = config.DefaultConfig()
	}

	// Environment overlay
	cliconfig.ApplyEnv(cfg, sources)

	// Flag overlay (only flags explicitly set)
	if changed("host") {
		cfg.Listen.Host = f.host
		sources["listen.host"] = cliconfig.SourceFlag
	}
	if changed("port") {
		cfg.Listen.Port = f.port
		sources["listen.port"] = cliconfig.SourceFlag
	}
	if changed("ops-port") {
		cfg.Ops.Port = f.opsPort
		sources["ops.port"] = cliconfig.SourceFlag
	}
	if f.noOps {
		disabled := false
		cfg.Ops.Enabled = &disabled
		sources["ops.enabled"] = cliconfig.SourceFlag
	}
	if changed("file") {
		ensureSinkConfig(cfg)
		cfg.Sink.Kind = sink.KindFile
		cfg.Sink.File = f.captureFile
		sources["sink.file"] = cliconfig.SourceFlag
	}
	if changed("remote-url") {
		ensureSinkConfig(cfg)
		cfg.Sink.Kind = sink.KindRemote
		cfg.Sink.URL = f.remoteURL
		sources["sink.url"] = cliconfig.SourceFlag
	}
	if f.stdout {
		ensureSinkConfig(cfg)
		cfg.Sink.Kind = sink.KindStdout
		sources["sink.kind"] = cliconfig.SourceFlag
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
		sources["logging.level"] = cliconfig.SourceFlag
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
		sources["logging.format"] = cliconfig.SourceFlag
	}
	if changed("pid-file") {
		cfg.PIDFile = f.pidFile
		sources["pidFile"] = cliconfig.SourceFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, sources, nil
}

func ensureSinkConfig(cfg *config.Config) {
	if cfg.Sink == nil {
		cfg.Sink = sink.DefaultConfig()
	}
}

// sinkKind names the sink the resolved configuration selects.
func sinkKind(cfg *config.Config) string {
	if cfg.Sink == nil || cfg.Sink.Kind == "" {
		return sink.KindFile
	}
	return cfg.Sink.Kind
}

// resolvePIDPathEarly determines the PID file path before full config
// resolution, for the parent side of daemon mode.
func resolvePIDPathEarly(cmd *cobra.Command, f *serveFlags) string {
	if cmd.Flags().Changed("pid-file") && f.pidFile != "" {
		return f.pidFile
	}
	if v := os.Getenv(cliconfig.EnvPIDFile); v != "" {
		return v
	}
	return DefaultPIDPath()
}

// checkPortConflicts verifies that the resolved ports are available
// before the listeners bind them, for a friendlier failure. A port of 0
// means "pick a free port" and is always fine.
func checkPortConflicts(cfg *config.Config) error {
	if cfg.Listen.Port > 0 {
		if err := ports.Check(cfg.Listen.Port); err != nil {
			return fmt.Errorf("capture port %d is already in use — try a different port with --port", cfg.Listen.Port)
		}
	}
	if cfg.Ops.IsEnabled() && cfg.Ops.Port > 0 {
		if err := ports.Check(cfg.Ops.Port); err != nil {
			return fmt.Errorf("ops port %d is already in use — try a different port with --ops-port", cfg.Ops.Port)
		}
	}
	return nil
}

// isAddrInUseError reports whether err looks like a bind failure on a
// busy port.
func isAddrInUseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	return strings.Contains(err.Error(), "address already in use")
}

// daemonize re-executes the current process as a background daemon.
func daemonize(pidPath string) error {
	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), childEnvVar+"=1")

	// Detach from terminal
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Wait briefly for child to start and write its PID file
	time.Sleep(500 * time.Millisecond)

	pidInfo, err := ReadPIDFile(pidPath)
	if err != nil {
		output.Warn("daemon may have failed to start (could not read PID file: %v)", err)
		return nil
	}

	if !pidInfo.IsRunning() {
		return errors.New("daemon process exited immediately")
	}

	fmt.Printf("trapd started in background (PID %d)\n", pidInfo.PID)
	if url := pidInfo.CaptureURL(); url != "" {
		fmt.Printf("Capture:  %s\n", url)
	}
	if url := pidInfo.OpsURL(); url != "" {
		fmt.Printf("Ops API:  %s\n", url)
	}
	return nil
}

// writePIDFileForServe writes the PID file with listener information.
func writePIDFileForServe(pidPath string, cfg *config.Config, sinkName string) error {
	pidInfo := &PIDFile{
		PID:       os.Getpid(),
		StartTime: time.Now(),
		Version:   Version,
		Commit:    Commit,
		Listeners: ListenersInfo{
			Capture: ListenerStatus{
				Enabled: true,
				Host:    cfg.Listen.Host,
				Port:    cfg.Listen.Port,
			},
			Ops: ListenerStatus{
				Enabled: cfg.Ops.IsEnabled(),
				Host:    cfg.Listen.Host,
				Port:    cfg.Ops.Port,
			},
		},
		Config: ConfigInfo{
			Sink: sinkName,
		},
	}

	return WritePIDFile(pidPath, pidInfo)
}

// printServeStartupMessage prints the server startup information.
func printServeStartupMessage(srv *server.Server, cfg *config.Config) {
	fmt.Println("trapd started")
	fmt.Println()
	fmt.Printf("  Capture: http://%s  (answers everything with OK)\n", srv.Addr())
	if ops := srv.OpsAddr(); ops != "" {
		fmt.Printf("  Ops API: http://%s  (/health, /metrics)\n", ops)
	}
	fmt.Println()

	switch sinkKind(cfg) {
	case sink.KindRemote:
		fmt.Printf("Captures are delivered to %s\n", cfg.Sink.URL)
	case sink.KindStdout:
		fmt.Println("Captures are printed to stdout")
	default:
		file := sink.DefaultFile
		if cfg.Sink != nil && cfg.Sink.File != "" {
			file = cfg.Sink.File
		}
		fmt.Printf("Captures are appended to %s\n", file)
		fmt.Printf("  tail -f %s\n", file)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
}

// runMainLoop blocks until a shutdown signal arrives, then stops the
// server and cleans up the PID file.
func runMainLoop(srv *server.Server, pidPath string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	fmt.Println("\nShutting down...")

	if pidPath != "" {
		if err := RemovePIDFile(pidPath); err != nil {
			output.Warn("failed to remove PID file: %v", err)
		}
	}

	if err := srv.Stop(); err != nil {
		output.Warn("server shutdown error: %v", err)
	}

	fmt.Println("Server stopped")
	return nil
}

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	webview "github.com/webview/webview_go"

	"github.com/kartoza/home-advisor/internal/config"
	"github.com/kartoza/home-advisor/internal/logging"
	"github.com/kartoza/home-advisor/internal/server"
)

var version = "dev"

var (
	// Global flags
	configPath string
	modelPath  string
	logLevel   string

	// Serve flags
	port     int
	dataDir  string
	headless bool

	// Resolved configuration, filled in before any command runs
	cfg *config.Config
)

// rootCmd starts the server when run without a subcommand
var rootCmd = &cobra.Command{
	Use:   "home-advisor",
	Short: "Home Advisor - thermostat setpoint and house price estimates",
	Long: `Home Advisor serves two small decision aids behind one local web UI:

  * a fuzzy-logic thermostat setpoint recommendation from room temperature
    and hour of day, and
  * a house price estimate from a tree-ensemble regression model.

Run without arguments to open the application window.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server and open the application window",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./home-advisor.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "Path to the price model artifact")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")

	serveCmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "HTTP server port")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for runtime data (history journal)")
	serveCmd.Flags().BoolVar(&headless, "headless", false, "Run in headless mode (no GUI window)")
	// The bare root command serves too, so it takes the same flags.
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setpointCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, applies explicit flags
// on top and initialises logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		loaded.Server.Port = port
	}
	if flags.Changed("data-dir") {
		loaded.Server.DataDir = dataDir
	}
	if flags.Changed("headless") {
		loaded.Server.Headless = headless
	}
	if flags.Changed("log-level") {
		loaded.Log.Level = logLevel
	}
	loaded.Model.Path = resolveModelPath(modelPath, loaded.Model.Path)
	loaded.Version = version

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := logging.Init("home-advisor", loaded.Log.Level); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// resolveModelPath picks the artifact to load:
// 1. An explicit --model flag takes priority
// 2. A path set in the config file or environment comes next
// 3. Otherwise, the artifact recorded by the last install, if it still exists
// 4. Fall back to the default path in the working directory
func resolveModelPath(flagPath, configured string) string {
	if flagPath != "" {
		return flagPath
	}
	if configured != "" && configured != config.DefaultModelPath {
		return configured
	}

	settings, err := config.LoadSettings()
	if err != nil {
		log.Warn().Err(err).Msg("Could not load settings")
		return config.DefaultModelPath
	}
	if settings.ModelPath != "" {
		if _, err := os.Stat(settings.ModelPath); err == nil {
			return settings.ModelPath
		}
		log.Warn().Str("path", settings.ModelPath).Msg("Saved model artifact no longer exists")
	}
	return config.DefaultModelPath
}

func runServe(cmd *cobra.Command, args []string) error {
	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Server.Port, 10)
	if err != nil {
		return fmt.Errorf("failed to find available port: %w", err)
	}
	if availablePort != cfg.Server.Port {
		log.Warn().Msgf("Port %d in use, using port %d instead", cfg.Server.Port, availablePort)
	}
	cfg.Server.Port = availablePort

	log.Info().Msgf("Home Advisor v%s starting on port %d", version, cfg.Server.Port)
	log.Info().Str("model", cfg.Model.Path).Str("history", cfg.History.Backend).Msg("Configuration resolved")

	// A missing or unreadable model is fatal.
	srv, err := server.New(*cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for server to be ready
	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	waitForServer(serverURL, 10*time.Second)

	if cfg.Server.Headless {
		// Headless mode: wait for signal or error
		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case sig := <-stop:
			log.Info().Msgf("Received %v signal, shutting down...", sig)
			return srv.Stop()
		}
	}

	// GUI mode: open embedded WebView window
	log.Info().Msg("Opening application window...")
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("Home Advisor")
	w.SetSize(1024, 768, webview.HintNone)
	w.Navigate(serverURL)

	// When the webview window closes, shut down the server
	go func() {
		select {
		case err := <-errCh:
			if err != nil {
				log.Error().Err(err).Msg("Server error")
			}
			w.Terminate()
		case sig := <-stop:
			log.Info().Msgf("Received %v signal, shutting down...", sig)
			w.Terminate()
		}
	}()

	// Run blocks until the window is closed
	w.Run()

	log.Info().Msg("Window closed, shutting down server...")
	return srv.Stop()
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) bool {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Warn().Msgf("Server may not be ready at %s", url)
	return false
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/vietddude/objstore"
	"github.com/vietddude/objstore/config"
	"github.com/vietddude/objstore/transfer"
	"github.com/vietddude/objstore/transport"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "objctl",
	Short: "Object storage transfer tool",
	Long:  `objctl uploads and downloads objects with retry-aware, concurrent chunked transfers.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(rmCmd)
}

// setup loads configuration, initializes logging and builds the client and
// transfer manager shared by all commands.
func setup() (*objstore.Client, *transfer.Manager, *config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}

	level := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})))

	if cfg.Endpoint.Protocol != "http" {
		return nil, nil, nil, fmt.Errorf("objctl supports the http protocol only; grpc needs generated client wiring")
	}
	tr := transport.NewHTTPTransport("objctl", cfg.Endpoint.URL, cfg.Endpoint.TransportTimeout())

	client := objstore.NewClient(tr, objstore.WithRetryPolicy(cfg.Retry.Policy()))

	opts, err := cfg.Transfer.Options(cfg.Retry.Policy())
	if err != nil {
		return nil, nil, nil, err
	}
	mgr := transfer.NewManager(client, opts...)

	return client, mgr, cfg, nil
}

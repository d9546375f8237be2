package main

import (
	"github.com/ChinmayaKolhe/VicharManthan/internal/config"
	"github.com/spf13/cobra"
)

// cliFlags override the matching environment variables when set.
type cliFlags struct {
	addr           string
	storeDriver    string
	dsn            string
	mongoURI       string
	allowedOrigins []string
	logLevel       string
}

var flags cliFlags

var rootCmd = &cobra.Command{
	Use:          "vicharmanthan",
	Short:        "Real-time chat, presence and notification server",
	Long:         "Serves the chat and notification API and the websocket hub. Runs serve when no subcommand is given.",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.addr, "addr", "", "server address (ADDR)")
	pf.StringVar(&flags.storeDriver, "store", "", "store driver, postgres or mongo (STORE_DRIVER)")
	pf.StringVar(&flags.dsn, "dsn", "", "postgres connection string (DATABASE_DSN)")
	pf.StringVar(&flags.mongoURI, "mongo-uri", "", "mongo connection string (MONGO_URI)")
	pf.StringSliceVar(&flags.allowedOrigins, "allowed-origins", nil, "comma-separated list of allowed origins (CLIENT_URL)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func (f cliFlags) apply(cfg *config.Config) {
	if f.addr != "" {
		cfg.ServerAddr = f.addr
	}
	if f.storeDriver != "" {
		cfg.StoreDriver = f.storeDriver
	}
	if f.dsn != "" {
		cfg.DatabaseDSN = f.dsn
	}
	if f.mongoURI != "" {
		cfg.MongoURI = f.mongoURI
	}
	if len(f.allowedOrigins) > 0 {
		cfg.AllowedOrigins = f.allowedOrigins
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	flags.apply(cfg)
	return cfg, nil
}

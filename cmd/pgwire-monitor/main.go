package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgwire-go/pgwire/internal/config"
)

var (
	configFile      string
	host            string
	port            uint16
	database        string
	user            string
	sslMode         string
	applicationName string
	refreshMillis   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pgwire-monitor",
	Short: "Watch a live PostgreSQL connection's state transitions",
	Long: `pgwire-monitor connects to a PostgreSQL server, completes the
startup handshake, and then renders the connection state after every
backend message it receives, alongside the server parameters reported
during startup. It sends no queries of its own.`,
	Example: `  pgwire-monitor --host localhost --user postgres
  pgwire-monitor --host db.internal --user app --database appdb`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (default: config.yaml searched in ., $HOME/.pgwire, /etc/pgwire)")
	rootCmd.Flags().StringVar(&host, "host", "localhost", "server host")
	rootCmd.Flags().Uint16Var(&port, "port", 5432, "server port")
	rootCmd.Flags().StringVar(&database, "database", "", "database name (defaults to user)")
	rootCmd.Flags().StringVar(&user, "user", "", "user name (required)")
	rootCmd.Flags().StringVar(&sslMode, "ssl-mode", "prefer", "SSL mode (disable, prefer, require)")
	rootCmd.Flags().StringVar(&applicationName, "application-name", "pgwire-monitor", "application_name startup parameter")
	rootCmd.Flags().IntVar(&refreshMillis, "refresh-ms", 500, "UI refresh interval in milliseconds (not used: the view redraws after each received message)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Connection.Host = host
	}
	if port != 0 {
		cfg.Connection.Port = port
	}
	if database != "" {
		cfg.Connection.Database = database
	}
	if user != "" {
		cfg.Connection.User = user
	}
	if sslMode != "" {
		cfg.Connection.SSLMode = sslMode
	}
	if applicationName != "" {
		cfg.Connection.ApplicationName = applicationName
	}
	if cfg.Connection.Database == "" {
		cfg.Connection.Database = cfg.Connection.User
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	password := os.Getenv("PGWIRE_PASSWORD")
	pgCfg, err := cfg.ToPgwireConfig(password)
	if err != nil {
		return err
	}

	return runMonitor(pgCfg, password)
}

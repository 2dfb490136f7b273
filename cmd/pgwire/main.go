package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pgwire-go/pgwire/internal/config"
	"github.com/pgwire-go/pgwire/pkg/logger"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pgwire",
	Short: "Speak the PostgreSQL frontend/backend protocol directly",
	Long: `pgwire drives the PostgreSQL wire protocol (v3.0) against a real
server: startup, MD5 or SCRAM-SHA-256 authentication, and the simple
query protocol, with no SQL parsing or connection pooling of its own.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pgwire %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect, authenticate, and run a query",
	Long: `Connect dials a PostgreSQL server, runs the startup and
authentication handshake, issues a single statement with the simple
query protocol, and prints the resulting rows.`,
	Example: `  pgwire connect --host localhost --user postgres --query "select 1"
  pgwire connect --host db.internal --user app --database appdb --interactive`,
	RunE: runConnect,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the handshake only and report server parameters",
	Example: `  pgwire probe --host localhost --user postgres`,
	RunE: runProbe,
}

// Global flags
var (
	configFile string
	logLevel   string
)

// connection flags, shared by connect and probe
var (
	host            string
	port            uint16
	database        string
	user            string
	sslMode         string
	applicationName string
	interactive     bool
)

// connect command flags
var (
	query string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: config.yaml searched in ., $HOME/.pgwire, /etc/pgwire)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	for _, c := range []*cobra.Command{connectCmd, probeCmd} {
		c.Flags().StringVar(&host, "host", "localhost", "server host")
		c.Flags().Uint16Var(&port, "port", 5432, "server port")
		c.Flags().StringVar(&database, "database", "", "database name (defaults to user)")
		c.Flags().StringVar(&user, "user", "", "user name (required)")
		c.Flags().StringVar(&sslMode, "ssl-mode", "prefer", "SSL mode (disable, prefer, require)")
		c.Flags().StringVar(&applicationName, "application-name", "pgwire", "application_name startup parameter")
		c.Flags().BoolVar(&interactive, "interactive", false, "prompt for the password interactively")
	}
	connectCmd.Flags().StringVarP(&query, "query", "q", "select 1", "statement to run after authenticating")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(probeCmd)
}

func loadConnectionConfig() (config.ConnectionConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	logger.SetLevel(logLevel)

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
	return cfg.Connection, cfg.Validate()
}

func runConnect(cmd *cobra.Command, args []string) error {
	connCfg, err := loadConnectionConfig()
	if err != nil {
		return err
	}

	password, err := resolvePassword(connCfg.User, interactive)
	if err != nil {
		return err
	}

	pgCfg, err := toPgwireConfig(connCfg)
	if err != nil {
		return err
	}

	conn, err := dialAndAuthenticate(pgCfg, password)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	logger.Info("authenticated", "state", conn.State.CurrentState().String())

	rows, err := conn.Query(query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		cols := make([]string, len(row))
		for i, col := range row {
			if col == nil {
				cols[i] = "NULL"
			} else {
				cols[i] = string(col)
			}
		}
		fmt.Println(cols)
	}
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	connCfg, err := loadConnectionConfig()
	if err != nil {
		return err
	}

	password, err := resolvePassword(connCfg.User, interactive)
	if err != nil {
		return err
	}

	pgCfg, err := toPgwireConfig(connCfg)
	if err != nil {
		return err
	}

	conn, err := dialAndAuthenticate(pgCfg, password)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	fmt.Println("state:", conn.State.CurrentState())
	if kd, ok := conn.State.BackendKeyData(); ok {
		fmt.Printf("backend key data: process=%d secret=%d\n", kd.ProcessID, kd.SecretKey)
	}
	for _, name := range []string{"server_version", "server_encoding", "TimeZone"} {
		if v, ok := conn.State.ServerParameter(name); ok {
			fmt.Printf("%s = %s\n", name, v)
		}
	}
	return nil
}

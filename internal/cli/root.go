// Package cli defines the cobra command tree for fieldtrack.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/fieldtrack/internal/db"
	"github.com/evcraddock/fieldtrack/internal/device"
	"github.com/evcraddock/fieldtrack/internal/gateway"
	"github.com/evcraddock/fieldtrack/internal/logging"
)

var (
	flagFormat   string
	flagDB       string
	flagVerbose  bool
	flagPosition string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ft",
		Short:         "Field attendance and client tracking",
		Long:          "Mark daily attendance and manage client leads from the field. Location and device evidence are attached automatically.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupCLI(os.Stderr, flagVerbose)
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "local SQLite database path (default: ~/.config/ft/ft.db)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().StringVar(&flagPosition, "position", "", `use a fixed position "lat,lng" instead of the configured location source`)

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newAttendCmd(),
		newClientsCmd(),
		newAdminCmd(),
		newGatewayCmd(),
		newDeviceCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the local SQLite database using the --db flag or default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newGatewayClient creates an HTTP client for the system of record.
func newGatewayClient() *gateway.Client {
	return gateway.New(getServerURL())
}

// deviceID returns a DeviceID source backed by the local database. The
// database is opened per call so commands that never need it never touch it.
func deviceID(ctx context.Context) (string, error) {
	database, err := openDB()
	if err != nil {
		return "", err
	}
	defer closeDB(database)
	return device.GetOrCreate(ctx, device.NewSQLiteStore(database))
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

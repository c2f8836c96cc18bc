package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evcraddock/fieldtrack/internal/db"
	"github.com/evcraddock/fieldtrack/internal/devgateway"
	"github.com/evcraddock/fieldtrack/internal/gateway"
	"github.com/evcraddock/fieldtrack/internal/logging"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Run and manage the development gateway",
		Long: `A local stand-in for the system of record, backed by SQLite. Kafka, Redis
and Sentry are enabled by KAFKA_BROKER, REDIS_HOST and SENTRY_DSN.`,
	}

	cmd.AddCommand(newGatewayServeCmd(), newGatewayEmployeeCmd())

	return cmd
}

func newGatewayServeCmd() *cobra.Command {
	var port int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := devgateway.ConfigFromEnv()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			return runGatewayServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (default: $PORT or 8080)")
	cmd.Flags().StringVar(&dbPath, "gateway-db", "", "gateway database path (default: ~/.config/ft/gateway.db)")

	return cmd
}

func runGatewayServe(ctx context.Context, cfg devgateway.Config) error {
	logging.Setup(os.Stderr, cfg.Env != "production" || flagVerbose)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Gateway listening on http://localhost:%d\n", cfg.Port)
	return devgateway.Run(ctx, cfg)
}

func newGatewayEmployeeCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Manage gateway employees",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "gateway-db", "", "gateway database path (default: ~/.config/ft/gateway.db)")

	var isAdmin bool
	add := &cobra.Command{
		Use:   "add <employee-id> <name>",
		Short: "Add or update an employee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := gateway.RoleEmployee
			if isAdmin {
				role = gateway.RoleAdmin
			}
			return runEmployeeAdd(cmd.Context(), dbPath, args[0], args[1], role)
		},
	}
	add.Flags().BoolVar(&isAdmin, "admin", false, "grant access to the admin views")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List employees",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeeList(cmd.Context(), dbPath)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func openGatewayStore(path string) (*devgateway.Store, func(), error) {
	if path == "" {
		path = os.Getenv("FT_GATEWAY_DB")
	}
	if path == "" {
		var err error
		path, err = db.DefaultGatewayPath()
		if err != nil {
			return nil, nil, err
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return devgateway.NewStore(database), func() { closeDB(database) }, nil
}

// newIdentityCache is swapped in tests.
var newIdentityCache = devgateway.NewRedisCache

// identityCacheFromEnv connects to the gateway's Redis cache when REDIS_HOST
// is set so employee writes drop stale identities. Otherwise, or when Redis
// is unreachable, it returns a no-op cache.
func identityCacheFromEnv() devgateway.IdentityCache {
	cfg := devgateway.ConfigFromEnv()
	if cfg.RedisHost == "" {
		return devgateway.NopIdentityCache()
	}
	cache, err := newIdentityCache(cfg.RedisHost, cfg.RedisPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: identity cache not cleared: %v\n", err)
		return devgateway.NopIdentityCache()
	}
	return cache
}

func runEmployeeAdd(ctx context.Context, dbPath, id, name string, role gateway.Role) error {
	id = strings.TrimSpace(id)
	if err := validateEmployeeID(id); err != nil {
		return err
	}

	store, done, err := openGatewayStore(dbPath)
	if err != nil {
		return err
	}
	defer done()

	cache := identityCacheFromEnv()
	defer func() { _ = cache.Close() }()

	if err := devgateway.SaveEmployee(ctx, store, cache, id, strings.TrimSpace(name), role); err != nil {
		return fmt.Errorf("saving employee: %w", err)
	}
	fmt.Printf("✓ Employee %s saved (%s).\n", id, role)
	return nil
}

func runEmployeeList(ctx context.Context, dbPath string) error {
	store, done, err := openGatewayStore(dbPath)
	if err != nil {
		return err
	}
	defer done()

	employees, err := store.ListEmployees(ctx)
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(employees)
	}
	if len(employees) == 0 {
		fmt.Println("No employees.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tROLE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, e := range employees {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", e.EmployeeID, e.Name, e.Role); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

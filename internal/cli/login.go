package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/fieldtrack/internal/gateway"
)

func newLoginCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "login <employee-id>",
		Short: "Log in as an employee",
		Long:  "Checks the employee ID against the system of record and stores it with the employee's name and role.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), args[0], server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or http://localhost:8080)")

	return cmd
}

func runLogin(ctx context.Context, employeeID, serverFlag string) error {
	employeeID = strings.TrimSpace(employeeID)
	if err := validateEmployeeID(employeeID); err != nil {
		return err
	}

	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	ident, err := gateway.New(serverURL).Login(ctx, employeeID)
	if err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.EmployeeID = ident.EmployeeID
	cfg.Name = ident.Name
	cfg.Role = ident.Role
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if isJSON() {
		return printJSON(ident)
	}
	fmt.Printf("✓ Logged in as %s (%s, %s)\n", ident.Name, ident.EmployeeID, ident.Role)
	return nil
}

// validateEmployeeID checks that the ID is non-empty and has no whitespace.
func validateEmployeeID(id string) error {
	if id == "" {
		return fmt.Errorf("no employee ID provided")
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return fmt.Errorf("invalid employee ID %q", id)
	}
	return nil
}

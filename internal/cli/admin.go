package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/fieldtrack/internal/admin"
	"github.com/evcraddock/fieldtrack/internal/crm"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Organization-wide views (admin only)",
	}

	cmd.AddCommand(
		newAdminAttendanceCmd(),
		newAdminClientsCmd(),
		newAdminInteractionsCmd(),
		newAdminExportCmd(),
	)

	return cmd
}

func newAdminViews() (*admin.Views, error) {
	adminID, err := requireAdmin()
	if err != nil {
		return nil, err
	}
	return admin.NewViews(newGatewayClient(), adminID), nil
}

func newAdminAttendanceCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "List attendance for all employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminAttendance(cmd.Context(), date)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "only show this date (YYYY-MM-DD)")

	return cmd
}

func runAdminAttendance(ctx context.Context, date string) error {
	views, err := newAdminViews()
	if err != nil {
		return err
	}
	rows, err := views.Attendance(ctx, date)
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(rows)
	}
	return printAttendanceTable(os.Stdout, rows)
}

func newAdminClientsCmd() *cobra.Command {
	var status, employee, search string

	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List every client with summary counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminClients(cmd.Context(), status, employee, search)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show this status")
	cmd.Flags().StringVar(&employee, "employee", "", "only show clients owned by this employee")
	cmd.Flags().StringVarP(&search, "search", "q", "", "filter by business name")

	return cmd
}

func runAdminClients(ctx context.Context, statusArg, employee, search string) error {
	f := admin.Filter{EmployeeID: employee, Search: search}
	if statusArg != "" {
		s, ok := crm.ParseStatus(statusArg)
		if !ok {
			return fmt.Errorf("invalid status %q (valid: %s)", statusArg, joinNames(crm.Statuses))
		}
		f.Status = s
	}

	views, err := newAdminViews()
	if err != nil {
		return err
	}
	clients, stats, err := views.Clients(ctx, f)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(struct {
			Stats   admin.Stats   `json:"stats"`
			Clients []*crm.Client `json:"clients"`
		}{stats, clients})
	}
	if err := printStats(os.Stdout, stats); err != nil {
		return err
	}
	return printClientTable(os.Stdout, clients, true)
}

func newAdminInteractionsCmd() *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "interactions",
		Short: "List the interaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminInteractions(cmd.Context(), clientID)
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "only show this client's interactions")

	return cmd
}

func runAdminInteractions(ctx context.Context, clientID string) error {
	views, err := newAdminViews()
	if err != nil {
		return err
	}
	rows, err := views.Interactions(ctx, clientID)
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(rows)
	}
	return printInteractions(os.Stdout, rows)
}

func newAdminExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export clients, attendance and interactions",
		Long: `Writes an export file. A .xlsx file gets one sheet each for clients,
attendance and interactions. A .csv file gets the server's client CSV.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminExport(cmd.Context(), args[0])
		},
	}

	return cmd
}

func runAdminExport(ctx context.Context, path string) error {
	adminID, err := requireAdmin()
	if err != nil {
		return err
	}
	gw := newGatewayClient()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		data, err := gw.DownloadClientsCSV(ctx, adminID)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
	case ".xlsx":
		views := admin.NewViews(gw, adminID)
		var e admin.Export
		if e.Clients, _, err = views.Clients(ctx, admin.Filter{}); err != nil {
			return err
		}
		if e.Attendance, err = views.Attendance(ctx, ""); err != nil {
			return err
		}
		if e.Interactions, err = views.Interactions(ctx, ""); err != nil {
			return err
		}
		if err := writeExport(path, e); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format %q (use .xlsx or .csv)", filepath.Ext(path))
	}

	fmt.Printf("✓ Exported to %s\n", path)
	return nil
}

func writeExport(path string, e admin.Export) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing export: %w", cerr)
		}
	}()
	return admin.WriteXLSX(f, e)
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and login status",
		Long:  "Asks the system of record who the stored employee is. A rejection means the employee ID is no longer valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	serverURL := getServerURL()
	employeeID := getEmployeeID()

	fmt.Printf("Server:   %s\n", serverURL)

	if employeeID == "" {
		fmt.Println("Employee: not configured")
		fmt.Println("\nRun 'ft login <employee-id>' to log in.")
		return nil
	}
	fmt.Printf("Employee: %s\n", employeeID)

	ident, err := newGatewayClient().WhoAmI(ctx, employeeID)
	if err != nil {
		fmt.Printf("Status:   ✗ %v\n", err)
		return nil
	}

	fmt.Printf("Name:     %s\n", ident.Name)
	fmt.Printf("Role:     %s\n", ident.Role)
	fmt.Println("Status:   ✓ connected")
	return nil
}

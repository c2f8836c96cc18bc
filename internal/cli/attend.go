package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/fieldtrack/internal/attendance"
)

func newAttendCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "attend",
		Short: "Mark today's attendance",
		Long: `Submits today's attendance decision. Present captures a location fix and
fails if none is available; leave statuses are submitted without location.

Statuses: Present, Casual Leave, Medical Leave (or present, casual, medical).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttend(cmd.Context(), status)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(attendance.Present), "attendance status")

	return cmd
}

func runAttend(ctx context.Context, statusArg string) error {
	status, ok := attendance.ParseStatus(statusArg)
	if !ok {
		return fmt.Errorf("invalid status %q (valid: %s)", statusArg, joinNames(attendance.ValidStatuses))
	}

	employeeID, err := requireEmployeeID()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := locator(cfg)
	if err != nil {
		return err
	}

	engine := attendance.NewEngine(newGatewayClient(), attendance.Config{
		Locator:    loc,
		FixTimeout: cfg.Location.Timeout,
		DeviceID:   deviceID,
	})

	result, err := engine.Decide(ctx, employeeID, time.Now(), status)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(result)
	}
	printAttendance(result)
	return nil
}

func joinNames[S ~string](statuses []S) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Print this device's identifier",
		Long:  "Prints the device identifier sent with attendance. It is created on first use and kept in the local database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := deviceID(cmd.Context())
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(map[string]string{"deviceId": id})
			}
			fmt.Println(id)
			return nil
		},
	}
}

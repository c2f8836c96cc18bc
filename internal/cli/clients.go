package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/fieldtrack/internal/crm"
	"github.com/evcraddock/fieldtrack/internal/imaging"
)

func newClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clients",
		Aliases: []string{"client"},
		Short:   "Manage your client leads",
	}

	cmd.AddCommand(
		newClientsListCmd(),
		newClientsAddCmd(),
		newClientsStatusCmd(),
		newClientsInteractCmd(),
		newClientsImageCmd(),
	)

	return cmd
}

// newClientEngine builds a lifecycle engine for the logged-in employee.
func newClientEngine() (*crm.Engine, string, error) {
	employeeID, err := requireEmployeeID()
	if err != nil {
		return nil, "", err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	loc, err := locator(cfg)
	if err != nil {
		return nil, "", err
	}
	engine := crm.NewEngine(newGatewayClient(), crm.Config{
		Locator:         loc,
		FixTimeout:      cfg.Location.Timeout,
		RequireLocation: cfg.RequireClientLocation,
	})
	return engine, employeeID, nil
}

func newClientsListCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your clients",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientsList(cmd.Context(), search)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "q", "", "filter by business name, industry or location")

	return cmd
}

func runClientsList(ctx context.Context, search string) error {
	engine, employeeID, err := newClientEngine()
	if err != nil {
		return err
	}

	if _, err := engine.Refresh(ctx, employeeID); err != nil {
		return err
	}
	clients := engine.Snapshot().Search(search)

	if isJSON() {
		return printJSON(clients)
	}
	return printClientTable(os.Stdout, clients, false)
}

func newClientsAddCmd() *cobra.Command {
	var nc crm.NewClient

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a client lead",
		Long: fmt.Sprintf(`Creates a client in the Lead Generated state.

Required: --business, --industry, --phone, --location.
Industries: %s.`, joinNames(crm.Industries)),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientsAdd(cmd.Context(), nc)
		},
	}

	cmd.Flags().StringVar(&nc.BusinessName, "business", "", "business name")
	cmd.Flags().StringVar(&nc.Industry, "industry", "", "industry")
	cmd.Flags().StringVar(&nc.ContactPerson, "contact", "", "contact person")
	cmd.Flags().StringVar(&nc.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&nc.Email, "email", "", "email address")
	cmd.Flags().StringVar(&nc.Location, "location", "", "business location or address")

	return cmd
}

func runClientsAdd(ctx context.Context, nc crm.NewClient) error {
	engine, employeeID, err := newClientEngine()
	if err != nil {
		return err
	}

	c, err := engine.Create(ctx, employeeID, nc)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(c)
	}
	fmt.Println("✓ Client added.")
	printClient(c)
	return nil
}

func newClientsStatusCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "status <client-id> <status>",
		Short: "Change a client's status",
		Long: fmt.Sprintf(`Moves a client to any status. Statuses: %s.

--description replaces the client's notes; omit it to keep them.`, joinNames(crm.Statuses)),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			return runClientsStatus(cmd.Context(), args[0], args[1], desc)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")

	return cmd
}

func runClientsStatus(ctx context.Context, clientID, statusArg string, description *string) error {
	engine, employeeID, err := newClientEngine()
	if err != nil {
		return err
	}

	// Unknown names pass through so the engine reports InvalidStatus.
	status, ok := crm.ParseStatus(statusArg)
	if !ok {
		status = crm.Status(statusArg)
	}

	c, err := engine.SetStatus(ctx, clientID, employeeID, status, description)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(c)
	}
	fmt.Printf("✓ Client %s is now %s.\n", clientID, c.Status)
	return nil
}

func newClientsInteractCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "interact <client-id> <type>",
		Short: "Record an interaction with a client",
		Long: fmt.Sprintf(`Records an interaction at the current location. A location fix is required.

Types: %s.`, joinNames(crm.InteractionTypes)),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientsInteract(cmd.Context(), args[0], args[1], notes)
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "interaction notes")

	return cmd
}

func runClientsInteract(ctx context.Context, clientID, typeArg, notes string) error {
	engine, employeeID, err := newClientEngine()
	if err != nil {
		return err
	}

	typ, ok := crm.ParseInteractionType(typeArg)
	if !ok {
		typ = crm.InteractionType(typeArg)
	}

	in, err := engine.RecordInteraction(ctx, clientID, employeeID, typ, notes)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(in)
	}
	fmt.Printf("✓ %s recorded for client %s at %.6f,%.6f.\n", in.InteractionType, clientID, in.Latitude, in.Longitude)
	return nil
}

func newClientsImageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "image <client-id> <file>",
		Short: "Attach a photo to a client",
		Long:  "Downscales a PNG, JPEG or WebP image and uploads it as the client's photo.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClientsImage(cmd.Context(), args[0], args[1])
		},
	}
}

func runClientsImage(ctx context.Context, clientID, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	data, err := imaging.Downscale(raw)
	if err != nil {
		return err
	}

	engine, employeeID, err := newClientEngine()
	if err != nil {
		return err
	}

	url, err := engine.AttachImage(ctx, clientID, employeeID, data, imaging.OutputMIME)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]string{"clientId": clientID, "imageUrl": url})
	}
	fmt.Printf("✓ Image uploaded: %s\n", url)
	return nil
}

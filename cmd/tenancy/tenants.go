package main

import (
	"github.com/spf13/cobra"

	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/tenant"
)

func newTenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage tenants",
	}
	cmd.AddCommand(newTenantsCreateCmd())
	cmd.AddCommand(newTenantsListCmd())
	cmd.AddCommand(newTenantsDeleteCmd())
	return cmd
}

func newTenantsCreateCmd() *cobra.Command {
	var domain, database string

	cmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a tenant",
		Example: "  tenancy tenants create acme --domain acme.example.com",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireNonEmpty("name", args[0]); err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best-effort on exit

			t := tenant.New(args[0])
			t.Domain = domain
			t.Database = database
			if err := a.store.CreateTenant(cmd.Context(), t); err != nil {
				return err
			}
			return printJSON(t)
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Tenant domain")
	cmd.Flags().StringVar(&database, "database", "", "Tenant database name")
	return cmd
}

func newTenantsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants in creation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best-effort on exit

			tenants, err := a.store.ListTenants(cmd.Context(), tenant.ListOpts{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			return printJSON(tenants)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of tenants (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of tenants to skip")
	return cmd
}

func newTenantsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tenant-id>",
		Short: "Delete a tenant; queued jobs carrying it will fail when run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := id.ParseTenantID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best-effort on exit

			return a.eng.DeleteTenant(cmd.Context(), tid)
		},
	}
}

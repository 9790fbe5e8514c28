package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/tenancy/dlq"
	"github.com/xraph/tenancy/id"
	"github.com/xraph/tenancy/job"
)

func newDLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay the dead letter queue",
	}
	cmd.AddCommand(newDLQListCmd())
	cmd.AddCommand(newDLQReplayCmd())
	return cmd
}

func newDLQListCmd() *cobra.Command {
	var (
		tenantID      string
		queue         string
		pending       bool
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead letter entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := dlq.ListOpts{
				Filter: dlq.Filter{Queue: queue, Pending: pending},
				Limit:  limit,
				Offset: offset,
			}
			if tenantID != "" {
				tid, err := id.ParseTenantID(tenantID)
				if err != nil {
					return fmt.Errorf("--tenant: %w", err)
				}
				opts.TenantID = tid
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best-effort on exit

			entries, err := a.eng.DLQService().List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(entries)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Only entries of this tenant")
	cmd.Flags().StringVar(&queue, "queue", "", "Only entries of this queue")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only entries not yet replayed")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")
	return cmd
}

func newDLQReplayCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "replay [entry-id]",
		Short: "Re-enqueue dead letter entries under their original tenant",
		Example: "  tenancy dlq replay dlq_01h455vb4pex5vsknk084sn02q\n" +
			"  tenancy dlq replay --tenant tenant_01h455vb4pex5vsknk084sn02q",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (tenantID == "") {
				return fmt.Errorf("give either an entry id or --tenant")
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best-effort on exit

			if len(args) == 1 {
				entryID, err := id.ParseDLQID(args[0])
				if err != nil {
					return err
				}
				j, err := a.eng.Replay(cmd.Context(), entryID)
				if err != nil {
					return err
				}
				return printJSON([]*job.Job{j})
			}

			tid, err := id.ParseTenantID(tenantID)
			if err != nil {
				return fmt.Errorf("--tenant: %w", err)
			}
			jobs, err := a.eng.ReplayTenant(cmd.Context(), tid)
			if err != nil {
				return err
			}
			return printJSON(jobs)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Replay every entry of this tenant")
	return cmd
}

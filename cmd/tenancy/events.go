package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/tenancy/event"
	"github.com/xraph/tenancy/id"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Read events from the bus",
	}
	cmd.AddCommand(newEventsTakeCmd())
	return cmd
}

func newEventsTakeCmd() *cobra.Command {
	var (
		count   int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:     "take <name>",
		Short:   "Print and acknowledge up to --count events",
		Example: "  tenancy events take " + event.NameTenantUnresolved + " --count 10",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best-effort on exit

			_, err = takeEvents(cmd.Context(), a.eng.EventBus(), args[0], count, timeout, os.Stdout)
			return err
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "Maximum number of events to take")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for each event")
	return cmd
}

type eventLine struct {
	ID        id.EventID      `json:"id"`
	Name      string          `json:"name"`
	TenantID  id.TenantID     `json:"tenantId,omitzero"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// takeEvents writes up to n events named name to w, acking each once it is
// written. It stops early when an event does not arrive within timeout.
func takeEvents(ctx context.Context, bus *event.Bus, name string, n int, timeout time.Duration, w io.Writer) (int, error) {
	taken := 0
	for taken < n {
		ok, err := bus.Consume(ctx, name, timeout, func(e *event.Event) error {
			line := eventLine{ID: e.ID, Name: e.Name, TenantID: e.TenantID, CreatedAt: e.CreatedAt}
			if len(e.Payload) > 0 {
				body, err := event.Decode[json.RawMessage](e)
				if err != nil {
					return err
				}
				line.Payload = body
			}
			return writeJSON(w, line)
		})
		if err != nil || !ok {
			return taken, err
		}
		taken++
	}
	return taken, nil
}

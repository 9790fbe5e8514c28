package job_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/xraph/tenancy/job"
)

type invoice struct {
	Customer string `json:"customer"`
	Cents    int    `json:"cents"`
}

func TestRegistry_HandlerDecodesPayload(t *testing.T) {
	r := job.NewRegistry()
	var got invoice
	job.RegisterDefinition(r, job.NewDefinition("send-invoice", func(_ context.Context, in invoice) error {
		got = in
		return nil
	}))

	run, ok := r.Handler("send-invoice")
	if !ok {
		t.Fatal("send-invoice not registered")
	}
	if err := run(context.Background(), []byte(`{"customer":"acme","cents":4200}`)); err != nil {
		t.Fatal(err)
	}
	if got != (invoice{Customer: "acme", Cents: 4200}) {
		t.Errorf("decoded %+v", got)
	}
}

func TestRegistry_HandlerErrors(t *testing.T) {
	boom := errors.New("smtp down")
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("mail", func(context.Context, invoice) error { return boom }))

	run, _ := r.Handler("mail")

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"bad json never reaches handler", `{"customer":`, "job mail: decode payload"},
		{"handler error passes through", `{}`, "smtp down"},
		{"empty payload is zero value", ``, "smtp down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), []byte(tt.payload))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRegistry_UnknownName(t *testing.T) {
	r := job.NewRegistry()
	if _, ok := r.Handler("missing"); ok {
		t.Error("handler found for unregistered name")
	}
	if got := r.Options("missing"); got != job.Defaults() {
		t.Errorf("options = %+v, want defaults", got)
	}
	if got := r.Awareness("missing"); got != job.AwarenessDefault {
		t.Errorf("awareness = %v", got)
	}
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("sync", func(context.Context, struct{}) error {
		return errors.New("v1")
	}, job.WithTenantAwareness(job.TenantAware)))
	job.RegisterDefinition(r, job.NewDefinition("sync", func(context.Context, struct{}) error {
		return errors.New("v2")
	}))

	run, _ := r.Handler("sync")
	if err := run(context.Background(), nil); err == nil || err.Error() != "v2" {
		t.Errorf("err = %v, want v2", err)
	}
	if got := r.Awareness("sync"); got != job.AwarenessDefault {
		t.Errorf("awareness = %v, want the second declaration", got)
	}
}

func TestRegistry_DeclaredOptions(t *testing.T) {
	noop := func(context.Context, struct{}) error { return nil }
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("reindex", noop, job.WithTenantAwareness(job.NotTenantAware)))
	job.RegisterDefinition(r, job.NewDefinition("send-invoice", noop,
		job.WithTenantAwareness(job.TenantAware),
		job.WithQueue("billing"),
		job.WithPriority(5),
		job.WithMaxRetries(1),
	))
	job.RegisterDefinition(r, job.NewDefinition("cleanup", noop))

	if got := r.Names(); !slices.Equal(got, []string{"cleanup", "reindex", "send-invoice"}) {
		t.Errorf("names = %v", got)
	}
	if got := r.Awareness("reindex"); got != job.NotTenantAware {
		t.Errorf("reindex = %v", got)
	}
	if got := r.Awareness("cleanup"); got != job.AwarenessDefault {
		t.Errorf("cleanup = %v", got)
	}

	o := r.Options("send-invoice")
	if o.Awareness != job.TenantAware || o.Queue != "billing" || o.Priority != 5 || o.MaxRetries != 1 {
		t.Errorf("send-invoice options = %+v", o)
	}
	if o.Timeout != job.Defaults().Timeout {
		t.Errorf("timeout = %v, want the default", o.Timeout)
	}
}

func TestOptions_WithLeavesReceiverAlone(t *testing.T) {
	base := job.Defaults()
	over := base.With(job.WithQueue("mail"), job.WithTenantAwareness(job.TenantAware))

	if base.Queue != "default" || base.Awareness != job.AwarenessDefault {
		t.Errorf("base changed: %+v", base)
	}
	if over.Queue != "mail" || over.Awareness != job.TenantAware {
		t.Errorf("override = %+v", over)
	}
}

package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

type stubSettler struct {
	stubJob
	report *Report
}

func (s *stubSettler) Settle(context.Context) (*Report, error) { return s.report, nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	completion := &stubJob{name: BookingCompletionJobName}
	retry := &stubJob{name: SalePayoutRetryJobName}
	registry := NewRegistry(completion, nil, retry)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != completion || jobs[1] != retry {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: SaleAutoReleaseJobName})
	if registry.Register(&stubJob{name: SaleAutoReleaseJobName}) {
		t.Fatalf("expected duplicate name to be rejected")
	}
	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}

func TestRegistrySettlerLookup(t *testing.T) {
	settler := &stubSettler{stubJob: stubJob{name: RentalPayoutRetryJobName}}
	registry := NewRegistry(settler, &stubJob{name: NotificationRetentionJobName})

	if got, ok := registry.Settler(RentalPayoutRetryJobName); !ok || got != settler {
		t.Fatalf("expected settler lookup to succeed")
	}
	if _, ok := registry.Settler(NotificationRetentionJobName); ok {
		t.Fatalf("retention job does not produce a report")
	}
	if _, ok := registry.Settler("missing"); ok {
		t.Fatalf("expected unknown job to miss")
	}
}

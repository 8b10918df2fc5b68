package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/story-cms-api/internal/models"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{models.FieldErrors{"title": "is required"}, OutcomeValidation},
		{fmt.Errorf("%w: story", models.ErrNotFound), OutcomeNotFound},
		{fmt.Errorf("%w: story", models.ErrAlreadyExists), OutcomeExists},
		{models.ErrIndexOutOfRange, OutcomeIndex},
		{fmt.Errorf("%w: x", models.ErrCorruptDocument), OutcomeCorrupt},
		{errors.New("disk on fire"), OutcomeError},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v): expected %s, got %s", tt.err, tt.want, got)
		}
	}
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("create", time.Now(), nil)
	m.Observe("create", time.Now(), models.ErrAlreadyExists)
	m.RecordImport(3, 1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
		if f.GetName() == "storycms_operations_total" && len(f.GetMetric()) != 2 {
			t.Errorf("Expected 2 outcome series, got %d", len(f.GetMetric()))
		}
	}
	for _, name := range []string{"storycms_operations_total", "storycms_operation_duration_seconds", "storycms_import_records_total"} {
		if !found[name] {
			t.Errorf("Expected metric family %s", name)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe("create", time.Now(), nil)
	m.RecordImport(1, 1)
}

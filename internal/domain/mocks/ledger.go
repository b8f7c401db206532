package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/strata-db/strata/internal/domain/ports"
)

// Ledger is a mock implementation of ports.Ledger.
type Ledger struct {
	Steps []ports.AppliedStep
	Err   error
}

// NewLedger creates a new mock Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// AppliedSteps returns every recorded step in the order it was marked.
func (m *Ledger) AppliedSteps(_ context.Context) ([]ports.AppliedStep, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]ports.AppliedStep, len(m.Steps))
	copy(out, m.Steps)
	return out, nil
}

// MarkApplied records a step as applied.
func (m *Ledger) MarkApplied(_ context.Context, name string, at time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	for _, step := range m.Steps {
		if step.Name == name {
			return fmt.Errorf("step already marked applied: %s", name)
		}
	}
	m.Steps = append(m.Steps, ports.AppliedStep{Name: name, AppliedAt: at})
	return nil
}

// UnmarkApplied removes a step's applied record.
func (m *Ledger) UnmarkApplied(_ context.Context, name string) error {
	if m.Err != nil {
		return m.Err
	}
	for i, step := range m.Steps {
		if step.Name == name {
			m.Steps = append(m.Steps[:i], m.Steps[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("step not marked applied: %s", name)
}

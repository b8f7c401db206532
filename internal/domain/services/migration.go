package services

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/ports"
)

// Step is a named, dependency-ordered data migration. Forward applies
// the step; Reverse undoes it and may be nil for irreversible steps.
type Step struct {
	Name         string
	Dependencies []string
	Forward      func(ctx context.Context, tx ports.Tx) error
	Reverse      func(ctx context.Context, tx ports.Tx) error
}

// StepStatus pairs a step with whether the ledger records it as applied.
type StepStatus struct {
	Name    string
	Applied bool
}

// MigrationService plans and runs registered migration steps against the
// store, recording progress in the ledger.
type MigrationService struct {
	registry *entities.Registry
	store    ports.Store
	ledger   ports.Ledger
	log      *zap.SugaredLogger

	steps  []*Step
	byName map[string]*Step
	commit func(ctx context.Context) error
}

// NewMigrationService creates a new MigrationService.
func NewMigrationService(registry *entities.Registry, store ports.Store, ledger ports.Ledger, log *zap.SugaredLogger) *MigrationService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &MigrationService{
		registry: registry,
		store:    store,
		ledger:   ledger,
		log:      log,
		byName:   make(map[string]*Step),
	}
}

// OnStepCommitted registers fn to run after each step is applied or
// reverted and recorded in the ledger, so the store can be persisted in
// lockstep with the ledger. A failing fn stops the run; steps already
// committed stay committed.
func (s *MigrationService) OnStepCommitted(fn func(ctx context.Context) error) {
	s.commit = fn
}

// Register adds a step. Step names must be unique.
func (s *MigrationService) Register(step *Step) error {
	if step.Name == "" {
		return fmt.Errorf("migration step has no name")
	}
	if _, ok := s.byName[step.Name]; ok {
		return fmt.Errorf("migration step already registered: %s", step.Name)
	}
	if step.Forward == nil {
		return fmt.Errorf("migration step %s has no forward function", step.Name)
	}
	s.steps = append(s.steps, step)
	s.byName[step.Name] = step
	return nil
}

// Plan returns every registered step in dependency order. Steps with no
// ordering constraint between them keep their registration order. A
// missing dependency or a cycle fails with DependencyError before any
// step runs.
func (s *MigrationService) Plan() ([]*Step, error) {
	for _, step := range s.steps {
		for _, dep := range step.Dependencies {
			if _, ok := s.byName[dep]; !ok {
				return nil, &entities.DependencyError{Step: step.Name, Missing: dep}
			}
		}
	}

	// Kahn's algorithm, draining ready steps in registration order.
	indegree := make(map[string]int, len(s.steps))
	dependents := make(map[string][]string, len(s.steps))
	for _, step := range s.steps {
		indegree[step.Name] = len(step.Dependencies)
		for _, dep := range step.Dependencies {
			dependents[dep] = append(dependents[dep], step.Name)
		}
	}

	ordered := make([]*Step, 0, len(s.steps))
	for len(ordered) < len(s.steps) {
		next := ""
		for _, step := range s.steps {
			if indegree[step.Name] == 0 {
				next = step.Name
				break
			}
		}
		if next == "" {
			var cycle []string
			for _, step := range s.steps {
				if indegree[step.Name] > 0 {
					cycle = append(cycle, step.Name)
				}
			}
			return nil, &entities.DependencyError{Step: cycle[0], Cycle: cycle}
		}
		ordered = append(ordered, s.byName[next])
		indegree[next] = -1
		for _, dependent := range dependents[next] {
			indegree[dependent]--
		}
	}
	return ordered, nil
}

// ApplyOptions tune a migration run.
type ApplyOptions struct {
	// To stops after the named step is applied. Empty applies everything.
	To string
	// Fake marks steps as applied without running them.
	Fake bool
}

// Apply runs every pending step in plan order, marking each in the
// ledger as it completes. Returns the names of the steps applied.
func (s *MigrationService) Apply(ctx context.Context, opts ApplyOptions) ([]string, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	if opts.To != "" {
		if _, ok := s.byName[opts.To]; !ok {
			return nil, fmt.Errorf("unknown migration step: %s", opts.To)
		}
	}

	applied, err := s.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, step := range plan {
		if !applied[step.Name] {
			if !opts.Fake {
				err := s.store.Apply(ctx, func(tx ports.Tx) error {
					return step.Forward(ctx, tx)
				})
				if err != nil {
					return ran, fmt.Errorf("applying step %s: %w", step.Name, err)
				}
			}
			if err := s.ledger.MarkApplied(ctx, step.Name, timeNow()); err != nil {
				return ran, fmt.Errorf("recording step %s: %w", step.Name, err)
			}
			ran = append(ran, step.Name)
			if s.commit != nil {
				if err := s.commit(ctx); err != nil {
					return ran, fmt.Errorf("persisting after step %s: %w", step.Name, err)
				}
			}
			s.log.Infow("migration step applied", "step", step.Name, "fake", opts.Fake)
		}
		if step.Name == opts.To {
			break
		}
	}
	return ran, nil
}

// Revert undoes applied steps in reverse plan order, stopping after
// count steps (count <= 0 reverts everything applied). A step with no
// Reverse function fails with IrreversibleStepError before anything is
// undone past it.
func (s *MigrationService) Revert(ctx context.Context, count int) ([]string, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	applied, err := s.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var pending []*Step
	for _, step := range slices.Backward(plan) {
		if applied[step.Name] {
			pending = append(pending, step)
		}
	}
	if count > 0 && count < len(pending) {
		pending = pending[:count]
	}

	var undone []string
	for _, step := range pending {
		if step.Reverse == nil {
			return undone, &entities.IrreversibleStepError{Step: step.Name}
		}
		err := s.store.Apply(ctx, func(tx ports.Tx) error {
			return step.Reverse(ctx, tx)
		})
		if err != nil {
			return undone, fmt.Errorf("reverting step %s: %w", step.Name, err)
		}
		if err := s.ledger.UnmarkApplied(ctx, step.Name); err != nil {
			return undone, fmt.Errorf("unrecording step %s: %w", step.Name, err)
		}
		undone = append(undone, step.Name)
		if s.commit != nil {
			if err := s.commit(ctx); err != nil {
				return undone, fmt.Errorf("persisting after step %s: %w", step.Name, err)
			}
		}
		s.log.Infow("migration step reverted", "step", step.Name)
	}
	return undone, nil
}

// RevertTo undoes applied steps in reverse plan order until only the
// named step and its predecessors remain applied. An empty name reverts
// everything.
func (s *MigrationService) RevertTo(ctx context.Context, name string) ([]string, error) {
	if name == "" {
		return s.Revert(ctx, 0)
	}
	if _, ok := s.byName[name]; !ok {
		return nil, fmt.Errorf("unknown migration step: %s", name)
	}

	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	applied, err := s.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, step := range slices.Backward(plan) {
		if step.Name == name {
			break
		}
		if applied[step.Name] {
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}
	return s.Revert(ctx, count)
}

// Status reports every registered step in plan order with its applied
// state.
func (s *MigrationService) Status(ctx context.Context) ([]StepStatus, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	applied, err := s.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]StepStatus, 0, len(plan))
	for _, step := range plan {
		out = append(out, StepStatus{Name: step.Name, Applied: applied[step.Name]})
	}
	return out, nil
}

func (s *MigrationService) appliedSet(ctx context.Context) (map[string]bool, error) {
	steps, err := s.ledger.AppliedSteps(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration ledger: %w", err)
	}
	set := make(map[string]bool, len(steps))
	for _, step := range steps {
		set[step.Name] = true
	}
	return set, nil
}

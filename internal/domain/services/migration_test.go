package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/domain/entities"
	"github.com/strata-db/strata/internal/domain/mocks"
	"github.com/strata-db/strata/internal/domain/ports"
)

func newMigrationService(t *testing.T) (*fixture, *mocks.Ledger, *MigrationService) {
	t.Helper()
	f := newFixture(t)
	ledger := mocks.NewLedger()
	return f, ledger, NewMigrationService(f.registry, f.store, ledger, nil)
}

func noop(_ context.Context, _ ports.Tx) error { return nil }

func registerNoop(t *testing.T, svc *MigrationService, name string, deps ...string) {
	t.Helper()
	require.NoError(t, svc.Register(&Step{
		Name: name, Dependencies: deps, Forward: noop, Reverse: noop,
	}))
}

func planNames(t *testing.T, svc *MigrationService) []string {
	t.Helper()
	plan, err := svc.Plan()
	require.NoError(t, err)
	names := make([]string, 0, len(plan))
	for _, step := range plan {
		names = append(names, step.Name)
	}
	return names
}

func TestRegister_Validation(t *testing.T) {
	_, _, svc := newMigrationService(t)

	assert.Error(t, svc.Register(&Step{Forward: noop}), "name required")
	assert.Error(t, svc.Register(&Step{Name: "a"}), "forward required")

	require.NoError(t, svc.Register(&Step{Name: "a", Forward: noop}))
	assert.Error(t, svc.Register(&Step{Name: "a", Forward: noop}), "duplicate name")
}

func TestPlan_RegistrationOrderWithoutDependencies(t *testing.T) {
	_, _, svc := newMigrationService(t)
	registerNoop(t, svc, "c")
	registerNoop(t, svc, "a")
	registerNoop(t, svc, "b")

	assert.Equal(t, []string{"c", "a", "b"}, planNames(t, svc))
}

func TestPlan_DependencyOrder(t *testing.T) {
	_, _, svc := newMigrationService(t)
	registerNoop(t, svc, "backfill", "seed")
	registerNoop(t, svc, "seed")
	registerNoop(t, svc, "cleanup", "backfill")

	assert.Equal(t, []string{"seed", "backfill", "cleanup"}, planNames(t, svc))
}

func TestPlan_MissingDependency(t *testing.T) {
	_, _, svc := newMigrationService(t)
	registerNoop(t, svc, "a", "nowhere")

	_, err := svc.Plan()
	var depErr *entities.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "a", depErr.Step)
	assert.Equal(t, "nowhere", depErr.Missing)
}

func TestPlan_Cycle(t *testing.T) {
	_, _, svc := newMigrationService(t)
	registerNoop(t, svc, "a", "b")
	registerNoop(t, svc, "b", "a")

	_, err := svc.Plan()
	var depErr *entities.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.ElementsMatch(t, []string{"a", "b"}, depErr.Cycle)
}

func TestApply_RunsPendingInOrder(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	ctx := context.Background()

	var ran []string
	record := func(name string) func(ctx context.Context, tx ports.Tx) error {
		return func(ctx context.Context, tx ports.Tx) error {
			ran = append(ran, name)
			return nil
		}
	}
	require.NoError(t, svc.Register(&Step{Name: "second", Dependencies: []string{"first"}, Forward: record("second")}))
	require.NoError(t, svc.Register(&Step{Name: "first", Forward: record("first")}))

	applied, err := svc.Apply(ctx, ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, applied)
	assert.Equal(t, []string{"first", "second"}, ran)
	assert.Len(t, ledger.Steps, 2)

	// A second run has nothing to do.
	applied, err = svc.Apply(ctx, ApplyOptions{})
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, []string{"first", "second"}, ran, "applied steps do not run again")
}

func TestApply_To(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	registerNoop(t, svc, "a")
	registerNoop(t, svc, "b", "a")
	registerNoop(t, svc, "c", "b")

	applied, err := svc.Apply(context.Background(), ApplyOptions{To: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, applied)
	assert.Len(t, ledger.Steps, 2)

	_, err = svc.Apply(context.Background(), ApplyOptions{To: "ghost"})
	require.Error(t, err)
}

func TestApply_Fake(t *testing.T) {
	_, ledger, svc := newMigrationService(t)

	require.NoError(t, svc.Register(&Step{
		Name: "explodes",
		Forward: func(_ context.Context, _ ports.Tx) error {
			return errors.New("must not run")
		},
	}))

	applied, err := svc.Apply(context.Background(), ApplyOptions{Fake: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"explodes"}, applied)
	assert.Len(t, ledger.Steps, 1, "faked step is still recorded")
}

func TestApply_FailedStepStopsRun(t *testing.T) {
	f, ledger, svc := newMigrationService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(&Step{
		Name: "seed",
		Forward: func(ctx context.Context, tx ports.Tx) error {
			return tx.Insert(ctx, &entities.Record{ID: "c1", Entity: "category", Values: map[string]any{"name": "General"}})
		},
	}))
	require.NoError(t, svc.Register(&Step{
		Name:         "broken",
		Dependencies: []string{"seed"},
		Forward: func(ctx context.Context, tx ports.Tx) error {
			if err := tx.Insert(ctx, &entities.Record{ID: "c2", Entity: "category", Values: map[string]any{"name": "Partial"}}); err != nil {
				return err
			}
			return errors.New("boom")
		},
	}))
	registerNoop(t, svc, "after", "broken")

	applied, err := svc.Apply(ctx, ApplyOptions{})
	require.Error(t, err)
	assert.Equal(t, []string{"seed"}, applied)
	assert.Len(t, ledger.Steps, 1, "failed step is not recorded")

	// The failed step's writes rolled back; the earlier step's stuck.
	assert.Equal(t, 1, f.count(t, "category"))
}

func TestApply_CommitsAfterEachStep(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	ctx := context.Background()

	commits := 0
	svc.OnStepCommitted(func(_ context.Context) error {
		commits++
		return nil
	})
	registerNoop(t, svc, "seed")
	require.NoError(t, svc.Register(&Step{
		Name:         "broken",
		Dependencies: []string{"seed"},
		Forward: func(_ context.Context, _ ports.Tx) error {
			return errors.New("boom")
		},
	}))

	// The first step's commit runs even though the run fails later, so
	// ledger and persisted state stay in lockstep.
	applied, err := svc.Apply(ctx, ApplyOptions{})
	require.Error(t, err)
	assert.Equal(t, []string{"seed"}, applied)
	assert.Equal(t, 1, commits)
	assert.Len(t, ledger.Steps, 1)
}

func TestApply_CommitFailureStopsRun(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	ctx := context.Background()

	svc.OnStepCommitted(func(_ context.Context) error {
		return errors.New("disk full")
	})
	registerNoop(t, svc, "a")
	registerNoop(t, svc, "b", "a")

	applied, err := svc.Apply(ctx, ApplyOptions{})
	require.ErrorContains(t, err, "persisting after step a")
	assert.Equal(t, []string{"a"}, applied)
	assert.Len(t, ledger.Steps, 1, "second step never runs")
}

func TestRevert_CommitsAfterEachStep(t *testing.T) {
	_, _, svc := newMigrationService(t)
	ctx := context.Background()

	registerNoop(t, svc, "a")
	registerNoop(t, svc, "b", "a")
	_, err := svc.Apply(ctx, ApplyOptions{})
	require.NoError(t, err)

	commits := 0
	svc.OnStepCommitted(func(_ context.Context) error {
		commits++
		return nil
	})

	reverted, err := svc.Revert(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, reverted)
	assert.Equal(t, 2, commits)
}

func TestRevert(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	ctx := context.Background()

	var undone []string
	reverse := func(name string) func(ctx context.Context, tx ports.Tx) error {
		return func(ctx context.Context, tx ports.Tx) error {
			undone = append(undone, name)
			return nil
		}
	}
	require.NoError(t, svc.Register(&Step{Name: "a", Forward: noop, Reverse: reverse("a")}))
	require.NoError(t, svc.Register(&Step{Name: "b", Dependencies: []string{"a"}, Forward: noop, Reverse: reverse("b")}))
	require.NoError(t, svc.Register(&Step{Name: "c", Dependencies: []string{"b"}, Forward: noop, Reverse: reverse("c")}))

	_, err := svc.Apply(ctx, ApplyOptions{})
	require.NoError(t, err)

	reverted, err := svc.Revert(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, reverted)
	assert.Len(t, ledger.Steps, 2)

	reverted, err = svc.Revert(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, reverted, "reverse plan order")
	assert.Empty(t, ledger.Steps)
	assert.Equal(t, []string{"c", "b", "a"}, undone)
}

func TestRevert_Irreversible(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(&Step{Name: "oneway", Forward: noop}))
	_, err := svc.Apply(ctx, ApplyOptions{})
	require.NoError(t, err)

	_, err = svc.Revert(ctx, 0)
	var irr *entities.IrreversibleStepError
	require.ErrorAs(t, err, &irr)
	assert.Equal(t, "oneway", irr.Step)
	assert.Len(t, ledger.Steps, 1, "step stays applied")
}

func TestRevertTo(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	ctx := context.Background()

	registerNoop(t, svc, "a")
	registerNoop(t, svc, "b", "a")
	registerNoop(t, svc, "c", "b")
	_, err := svc.Apply(ctx, ApplyOptions{})
	require.NoError(t, err)

	reverted, err := svc.RevertTo(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, reverted)
	require.Len(t, ledger.Steps, 1)
	assert.Equal(t, "a", ledger.Steps[0].Name)

	// Already there: nothing to revert.
	reverted, err = svc.RevertTo(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, reverted)

	_, err = svc.RevertTo(ctx, "ghost")
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	_, _, svc := newMigrationService(t)
	ctx := context.Background()

	registerNoop(t, svc, "a")
	registerNoop(t, svc, "b", "a")

	_, err := svc.Apply(ctx, ApplyOptions{To: "a"})
	require.NoError(t, err)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Equal(t, StepStatus{Name: "a", Applied: true}, status[0])
	assert.Equal(t, StepStatus{Name: "b", Applied: false}, status[1])
}

func TestApply_LedgerError(t *testing.T) {
	_, ledger, svc := newMigrationService(t)
	registerNoop(t, svc, "a")

	ledger.Err = errors.New("ledger offline")
	_, err := svc.Apply(context.Background(), ApplyOptions{})
	require.Error(t, err)
}

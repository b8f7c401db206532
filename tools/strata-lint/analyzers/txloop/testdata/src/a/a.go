package a

import "context"

type Tx interface {
	Insert(ctx context.Context, id string) error
}

type Store interface {
	Apply(ctx context.Context, fn func(tx Tx) error) error
}

func bad(ctx context.Context, ids []string, store Store) {
	for _, id := range ids {
		store.Apply(ctx, func(tx Tx) error { // want "transaction per iteration: Apply called inside loop"
			return tx.Insert(ctx, id)
		})
	}
}

func good(ctx context.Context, ids []string, store Store) {
	// One transaction covering the whole batch - should not flag
	store.Apply(ctx, func(tx Tx) error {
		for _, id := range ids {
			if err := tx.Insert(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

package cardstore

import (
	"context"
	"errors"
	"fmt"
)

// RemoteLedger is the remote counterpart consumed by reconciliation. Push
// hands a full local account to the remote; FetchAll returns a
// point-in-time snapshot of (identifier, balance) pairs. Implementations
// must distinguish connectivity failure from an empty snapshot.
type RemoteLedger interface {
	Push(ctx context.Context, account Account) error
	FetchAll(ctx context.Context) ([]RemoteAccount, error)
}

// PullSummary counts the actions a pull took, one per snapshot record.
type PullSummary struct {
	Created   int
	Updated   int
	Unchanged int
	Failed    int
}

// PushSummary counts push attempts over the local account set.
type PushSummary struct {
	Pushed int
	Failed int
}

// Reconciler merges remote snapshots into the local store and mirrors local
// accounts back to the remote.
type Reconciler struct {
	store  *Store
	remote RemoteLedger
}

// NewReconciler wires a Reconciler.
func NewReconciler(store *Store, remote RemoteLedger) (*Reconciler, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if remote == nil {
		return nil, fmt.Errorf("%w: remote dependency is nil", ErrInvalidServiceConfig)
	}
	return &Reconciler{store: store, remote: remote}, nil
}

// Pull fetches the remote snapshot and merges it record by record, in
// snapshot order. A record absent locally is created with the remote
// balance and password 0 (no local secret has ever been established); a
// record whose remote balance differs keeps the local password and takes
// the remote balance (last-pull-wins, no version vector — a local change
// made between push and pull is overwritten); an equal balance is left
// alone. A persistence failure counts as Failed and never aborts the
// remaining records; only the snapshot fetch itself is fatal.
func (reconciler *Reconciler) Pull(ctx context.Context) (PullSummary, error) {
	snapshot, err := reconciler.remote.FetchAll(ctx)
	if err != nil {
		return PullSummary{}, WrapError("reconcile", "snapshot", "fetch", err)
	}
	var summary PullSummary
	for _, remoteAccount := range snapshot {
		local, err := reconciler.store.Load(remoteAccount.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			created := Account{
				ID:       remoteAccount.ID,
				Password: 0,
				Balance:  remoteAccount.Balance,
			}
			if err := reconciler.store.Save(created); err != nil {
				summary.Failed++
				continue
			}
			summary.Created++
		case err != nil:
			summary.Failed++
		case local.Balance != remoteAccount.Balance:
			local.Balance = remoteAccount.Balance
			if err := reconciler.store.Save(local); err != nil {
				summary.Failed++
				continue
			}
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}
	return summary, nil
}

// PushAll hands every locally known account to the remote. One failed push
// does not block attempting the rest.
func (reconciler *Reconciler) PushAll(ctx context.Context) (PushSummary, error) {
	accounts, err := reconciler.store.List()
	if err != nil {
		return PushSummary{}, err
	}
	var summary PushSummary
	for _, account := range accounts {
		if err := reconciler.remote.Push(ctx, account); err != nil {
			summary.Failed++
			continue
		}
		summary.Pushed++
	}
	return summary, nil
}

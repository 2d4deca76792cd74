package state

import (
	"context"
	"sync"
)

// Journal records the last operation per stack on top of a Store.
type Journal struct {
	store Store
	mu    sync.Mutex
}

// NewJournal wraps store. A nil store makes every call a no-op.
func NewJournal(store Store) *Journal {
	return &Journal{store: store}
}

// Last returns the most recent record for stack, if any.
func (j *Journal) Last(ctx context.Context, stack string) (Record, bool, error) {
	if j == nil || j.store == nil {
		return Record{}, false, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.store.Load(ctx)
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := st.Stacks[stack]
	return rec, ok, nil
}

// Append stores rec as the latest record for stack and returns the transition
// from the record it replaced.
func (j *Journal) Append(ctx context.Context, stack string, rec Record) (Transition, error) {
	if j == nil || j.store == nil {
		return DetectTransition(stack, nil, rec), nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	st, err := j.store.Load(ctx)
	if err != nil {
		return Transition{}, err
	}
	var prev *Record
	if existing, ok := st.Stacks[stack]; ok {
		prev = &existing
	}
	st.Stacks[stack] = rec
	if err := j.store.Save(ctx, st); err != nil {
		return Transition{}, err
	}
	return DetectTransition(stack, prev, rec), nil
}

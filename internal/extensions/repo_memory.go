package extensions

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepo is an in-memory directory useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu        sync.Mutex
	endpoints map[string]Endpoint
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{endpoints: map[string]Endpoint{}}
}

func memKey(accountID int64, number string) string {
	return fmt.Sprintf("%d:%s", accountID, number)
}

func (r *MemoryRepo) Put(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[memKey(ep.AccountID, ep.Number)] = ep
}

func (r *MemoryRepo) Find(ctx context.Context, accountID int64, number string) (Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.endpoints[memKey(accountID, number)]
	if !ok {
		return Endpoint{}, ErrNotFound
	}
	return ep, nil
}

package vault

import (
	"context"
	"sync"
)

// MemoryVault keeps the credential in process memory only. Used by tests
// and by hosts that disallow writing secrets to disk.
type MemoryVault struct {
	mu    sync.Mutex
	pair  TokenPair
	saved bool
}

var _ Vault = (*MemoryVault)(nil)

func NewMemoryVault() *MemoryVault { return &MemoryVault{} }

func (v *MemoryVault) Save(ctx context.Context, pair TokenPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pair = pair
	v.saved = true
	return nil
}

func (v *MemoryVault) Load(ctx context.Context) (TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return TokenPair{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.saved || !v.pair.complete() {
		return TokenPair{}, ErrNotFound
	}
	return v.pair, nil
}

func (v *MemoryVault) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pair = TokenPair{}
	v.saved = false
	return nil
}

func (v *MemoryVault) HasSaved(ctx context.Context) bool {
	_, err := v.Load(ctx)
	return err == nil
}

package wallet

import (
	"context"
	"sync"
)

// MemoryProvider holds wallets in memory (tests and local development)
type MemoryProvider struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
}

// NewMemoryProvider returns a provider holding wallets
func NewMemoryProvider(wallets ...*Wallet) *MemoryProvider {
	p := &MemoryProvider{wallets: make(map[string]Wallet)}
	for _, w := range wallets {
		p.Add(w)
	}
	return p
}

// Add registers w, replacing any wallet with the same CID
func (p *MemoryProvider) Add(w *Wallet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wallets[w.CID] = *w
}

func (p *MemoryProvider) GetWallet(ctx context.Context, cid string) (*Wallet, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	w, ok := p.wallets[cid]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return &w, nil
}

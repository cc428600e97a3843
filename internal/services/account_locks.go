package services

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// AccountLocks serializes ledger submissions per sending account.
//
// Hold the lock from the nonce fetch until the receipt is returned. Calls for different accounts do not block each other.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[common.Address]*accountLock
}

type accountLock struct {
	mu      sync.Mutex
	waiters int
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[common.Address]*accountLock)}
}

// Lock blocks until address is free and returns the function that releases it.
func (a *AccountLocks) Lock(address common.Address) (unlock func()) {
	a.mu.Lock()
	l, ok := a.locks[address]
	if !ok {
		l = &accountLock{}
		a.locks[address] = l
	}
	l.waiters++
	a.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			a.mu.Lock()
			l.waiters--
			if l.waiters == 0 {
				delete(a.locks, address)
			}
			a.mu.Unlock()
		})
	}
}

// held returns the number of accounts with a holder or waiter
func (a *AccountLocks) held() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}

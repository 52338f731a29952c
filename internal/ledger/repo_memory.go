package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is the in-process ledger store used by the memory backend and
// tests. Transactions are held in insertion order.
type MemoryRepo struct {
	mu           sync.Mutex
	wallets      map[string]Wallet // keyed by owner id
	transactions []Transaction
	byID         map[string]int
	byRef        map[string]int // key: owner|reference
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		wallets: map[string]Wallet{},
		byID:    map[string]int{},
		byRef:   map[string]int{},
	}
}

func (r *MemoryRepo) GetWallet(ctx context.Context, ownerID string) (Wallet, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[ownerID]
	return w, ok, nil
}

func (r *MemoryRepo) CreateWallet(ctx context.Context, w Wallet) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.OwnerID] = w
	return nil
}

func (r *MemoryRepo) ApplyChange(ctx context.Context, w Wallet, t Transaction) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.OwnerID] = w
	r.append(t)
	return nil
}

func (r *MemoryRepo) AppendTransaction(ctx context.Context, t Transaction) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(t)
	return nil
}

func (r *MemoryRepo) FindByReference(ctx context.Context, ownerID, reference string) (Transaction, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byRef[ownerID+"|"+reference]; ok {
		return r.transactions[i], true, nil
	}
	return Transaction{}, false, nil
}

func (r *MemoryRepo) ListTransactions(ctx context.Context, ownerID string) ([]Transaction, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Transaction, 0)
	for _, t := range r.transactions {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	// Newest first; equal timestamps keep insertion order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) GetTransaction(ctx context.Context, id string) (Transaction, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[id]; ok {
		return r.transactions[i], true, nil
	}
	return Transaction{}, false, nil
}

// append assumes r.mu is held.
func (r *MemoryRepo) append(t Transaction) {
	r.transactions = append(r.transactions, t)
	i := len(r.transactions) - 1
	r.byID[t.ID] = i
	r.byRef[t.OwnerID+"|"+t.Reference] = i
}

// Package memdb is an in-process ledger store used by tests and by the
// wallet service when WALLET_STORE=memory.
package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"gride/internal/wallet-service/core/domain/model"
	"gride/internal/wallet-service/core/myerrors"
	"gride/internal/wallet-service/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Ledger struct {
	mu           sync.RWMutex
	accounts     map[string]model.Account
	byOwner      map[string]string
	byAddress    map[string]string
	transactions []model.Transaction
	transfers    []model.Transfer

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	now func() time.Time
}

var _ ports.ILedgerRepo = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{
		accounts:  make(map[string]model.Account),
		byOwner:   make(map[string]string),
		byAddress: make(map[string]string),
		locks:     make(map[string]chan struct{}),
		now:       time.Now,
	}
}

func (l *Ledger) GetAccountByOwner(ctx context.Context, ownerID string) (model.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountByOwner(ownerID)
}

func (l *Ledger) CreateAccount(ctx context.Context, acc model.Account) (model.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byOwner[acc.OwnerID]; ok {
		return model.Account{}, ports.ErrAccountExists
	}
	if _, ok := l.byAddress[acc.Address]; ok {
		return model.Account{}, ports.ErrAddressTaken
	}

	now := l.now()
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.CreatedAt, acc.UpdatedAt = now, now
	l.accounts[acc.ID] = acc
	l.byOwner[acc.OwnerID] = acc.ID
	l.byAddress[acc.Address] = acc.ID
	return acc, nil
}

// ListTransactions returns the owner's records newest first.
func (l *Ledger) ListTransactions(ctx context.Context, ownerID string, limit, offset int) ([]model.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Transaction
	for i := len(l.transactions) - 1; i >= 0; i-- {
		if l.transactions[i].OwnerID == ownerID {
			out = append(out, l.transactions[i])
		}
	}
	return window(out, limit, offset), nil
}

func (l *Ledger) ListTransfers(ctx context.Context, ownerID string, limit, offset int) ([]model.Transfer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.Transfer
	for i := len(l.transfers) - 1; i >= 0; i-- {
		t := l.transfers[i]
		if t.SenderID == ownerID || t.ReceiverID == ownerID {
			out = append(out, t)
		}
	}
	return window(out, limit, offset), nil
}

// WithinTx stages every write made through tx and applies them in one step
// when fn returns nil. Account locks taken by the unit are held until then.
func (l *Ledger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.ILedgerTx) error) error {
	tx := &ledgerTx{
		ledger:   l,
		held:     make(map[string]bool),
		balances: make(map[string]decimal.Decimal),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.commit(tx)
	return nil
}

// Snapshot returns copies of all committed records.
func (l *Ledger) Snapshot() ([]model.Account, []model.Transaction, []model.Transfer) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts := make([]model.Account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	txs := append([]model.Transaction(nil), l.transactions...)
	transfers := append([]model.Transfer(nil), l.transfers...)
	return accounts, txs, transfers
}

func (l *Ledger) commit(tx *ledgerTx) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, balance := range tx.balances {
		acc := l.accounts[id]
		acc.Available = balance
		acc.UpdatedAt = now
		l.accounts[id] = acc
	}
	for _, rec := range tx.transactions {
		rec.CreatedAt = now
		l.transactions = append(l.transactions, rec)
	}
	for _, rec := range tx.transfers {
		rec.CreatedAt = now
		l.transfers = append(l.transfers, rec)
	}
}

func (l *Ledger) accountByOwner(ownerID string) (model.Account, error) {
	id, ok := l.byOwner[ownerID]
	if !ok {
		return model.Account{}, myerrors.ErrAccountNotFound
	}
	return l.accounts[id], nil
}

func (l *Ledger) lockChan(id string) chan struct{} {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	ch, ok := l.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[id] = ch
	}
	return ch
}

type ledgerTx struct {
	ledger *Ledger
	order  []string
	held   map[string]bool

	balances     map[string]decimal.Decimal
	transactions []model.Transaction
	transfers    []model.Transfer
}

func (tx *ledgerTx) FindAccountByOwner(ctx context.Context, ownerID string) (model.Account, error) {
	tx.ledger.mu.RLock()
	defer tx.ledger.mu.RUnlock()
	acc, err := tx.ledger.accountByOwner(ownerID)
	if err != nil {
		return acc, err
	}
	return tx.view(acc), nil
}

func (tx *ledgerTx) FindAccountByAddress(ctx context.Context, address string) (model.Account, error) {
	tx.ledger.mu.RLock()
	defer tx.ledger.mu.RUnlock()
	id, ok := tx.ledger.byAddress[address]
	if !ok {
		return model.Account{}, myerrors.ErrAccountNotFound
	}
	return tx.view(tx.ledger.accounts[id]), nil
}

func (tx *ledgerTx) LockAccounts(ctx context.Context, ids ...string) (map[string]model.Account, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	for _, id := range sorted {
		if tx.held[id] {
			continue
		}
		select {
		case tx.ledger.lockChan(id) <- struct{}{}:
			tx.held[id] = true
			tx.order = append(tx.order, id)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	tx.ledger.mu.RLock()
	defer tx.ledger.mu.RUnlock()
	out := make(map[string]model.Account, len(sorted))
	for _, id := range sorted {
		acc, ok := tx.ledger.accounts[id]
		if !ok {
			return nil, myerrors.ErrAccountNotFound
		}
		out[id] = tx.view(acc)
	}
	return out, nil
}

func (tx *ledgerTx) UpdateBalance(ctx context.Context, accountID string, available decimal.Decimal) error {
	if !tx.held[accountID] {
		return ports.ErrNotLocked
	}
	if available.IsNegative() {
		return myerrors.ErrInsufficientFunds
	}
	tx.balances[accountID] = available
	return nil
}

func (tx *ledgerTx) AppendTransaction(ctx context.Context, rec model.Transaction) (model.Transaction, error) {
	rec.ID = uuid.NewString()
	tx.transactions = append(tx.transactions, rec)
	return rec, nil
}

func (tx *ledgerTx) AppendTransfer(ctx context.Context, rec model.Transfer) (model.Transfer, error) {
	rec.ID = uuid.NewString()
	tx.transfers = append(tx.transfers, rec)
	return rec, nil
}

// view overlays balances staged by this unit on a committed row.
func (tx *ledgerTx) view(acc model.Account) model.Account {
	if b, ok := tx.balances[acc.ID]; ok {
		acc.Available = b
	}
	return acc
}

func (tx *ledgerTx) release() {
	for i := len(tx.order) - 1; i >= 0; i-- {
		<-tx.ledger.lockChan(tx.order[i])
	}
	tx.order = nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

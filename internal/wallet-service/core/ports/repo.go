package ports

import (
	"context"
	"errors"

	"gride/internal/wallet-service/core/domain/model"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountExists = errors.New("wallet already exists for owner")
	ErrAddressTaken  = errors.New("wallet address already taken")
	ErrNotLocked     = errors.New("account is not locked by this unit of work")
)

// ILedgerRepo is the durable store of accounts, transactions and transfers.
// Lookups that miss return myerrors.ErrAccountNotFound.
type ILedgerRepo interface {
	GetAccountByOwner(ctx context.Context, ownerID string) (model.Account, error)
	// CreateAccount fails with ErrAccountExists or ErrAddressTaken on conflicts.
	CreateAccount(ctx context.Context, acc model.Account) (model.Account, error)
	ListTransactions(ctx context.Context, ownerID string, limit, offset int) ([]model.Transaction, error)
	ListTransfers(ctx context.Context, ownerID string, limit, offset int) ([]model.Transfer, error)

	// WithinTx runs fn as one atomic unit of work. Nothing fn writes is
	// visible to other readers unless fn returns nil and the commit succeeds.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx ILedgerTx) error) error
}

// ILedgerTx is the view of the store inside a unit of work.
type ILedgerTx interface {
	FindAccountByOwner(ctx context.Context, ownerID string) (model.Account, error)
	FindAccountByAddress(ctx context.Context, address string) (model.Account, error)
	// LockAccounts locks the accounts in ascending id order and returns
	// their current rows, read after the locks are held.
	LockAccounts(ctx context.Context, ids ...string) (map[string]model.Account, error)
	UpdateBalance(ctx context.Context, accountID string, available decimal.Decimal) error
	AppendTransaction(ctx context.Context, rec model.Transaction) (model.Transaction, error)
	AppendTransfer(ctx context.Context, rec model.Transfer) (model.Transfer, error)
}

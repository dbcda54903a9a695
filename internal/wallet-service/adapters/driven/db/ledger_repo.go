package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"gride/internal/mylogger"
	"gride/internal/postgres"
	"gride/internal/wallet-service/core/domain/model"
	"gride/internal/wallet-service/core/myerrors"
	"gride/internal/wallet-service/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var Schema string

const txAttempts = 3

const accountColumns = `id, driver_id, wallet_address, currency, available_balance::text, pending_balance::text, is_active, created_at, updated_at`

type LedgerRepo struct {
	pool  *pgxpool.Pool
	mylog mylogger.Logger
}

var _ ports.ILedgerRepo = (*LedgerRepo)(nil)

func NewLedgerRepo(pool *pgxpool.Pool, log mylogger.Logger) *LedgerRepo {
	return &LedgerRepo{pool: pool, mylog: log}
}

// Migrate creates the wallet tables when they do not exist.
func (lr *LedgerRepo) Migrate(ctx context.Context) error {
	if _, err := lr.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply wallet schema: %w", err)
	}
	return nil
}

func (lr *LedgerRepo) IsAlive(ctx context.Context) error {
	return lr.pool.Ping(ctx)
}

func (lr *LedgerRepo) GetAccountByOwner(ctx context.Context, ownerID string) (model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM wallets WHERE driver_id = $1`
	return scanAccount(lr.pool.QueryRow(ctx, q, ownerID))
}

func (lr *LedgerRepo) CreateAccount(ctx context.Context, acc model.Account) (model.Account, error) {
	q := `INSERT INTO wallets (id, driver_id, wallet_address, currency, available_balance, pending_balance, is_active)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
		RETURNING ` + accountColumns

	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	created, err := scanAccount(lr.pool.QueryRow(ctx, q,
		acc.ID,
		acc.OwnerID,
		acc.Address,
		acc.Currency,
		acc.Available.String(),
		acc.Pending.String(),
		acc.Active,
	))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			if strings.Contains(postgres.ConstraintName(err), "wallet_address") {
				return model.Account{}, ports.ErrAddressTaken
			}
			return model.Account{}, ports.ErrAccountExists
		}
		return model.Account{}, err
	}
	return created, nil
}

func (lr *LedgerRepo) ListTransactions(ctx context.Context, ownerID string, limit, offset int) ([]model.Transaction, error) {
	q := `
	SELECT
		id, wallet_id, driver_id, amount::text, type, source, description, COALESCE(transfer_id, ''), created_at
	FROM
		wallet_transactions
	WHERE
		driver_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3`

	rows, err := lr.pool.Query(ctx, q, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Transaction{}
	for rows.Next() {
		var (
			t      model.Transaction
			amount string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.OwnerID, &amount, &t.Direction, &t.Source, &t.Description, &t.TransferID, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (lr *LedgerRepo) ListTransfers(ctx context.Context, ownerID string, limit, offset int) ([]model.Transfer, error) {
	q := `
	SELECT
		id, sender_wallet_id, receiver_wallet_id, sender_id, receiver_id, amount::text, note, created_at
	FROM
		wallet_transfers
	WHERE
		sender_id = $1 OR receiver_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3`

	rows, err := lr.pool.Query(ctx, q, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Transfer{}
	for rows.Next() {
		var (
			t      model.Transfer
			amount string
		)
		if err := rows.Scan(&t.ID, &t.SenderAccountID, &t.ReceiverAccountID, &t.SenderID, &t.ReceiverID, &amount, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// WithinTx runs fn in a read committed transaction. Rows fn needs to
// mutate are locked with SELECT ... FOR UPDATE; the whole unit is retried
// when postgres aborts it for a serialization failure or a deadlock.
func (lr *LedgerRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.ILedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = lr.runTx(ctx, fn)
		if err == nil || !postgres.IsRetryable(err) {
			return err
		}
		lr.mylog.Action("WithinTx").Warn("retrying aborted transaction", "attempt", attempt, "error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
		}
	}
	return err
}

func (lr *LedgerRepo) runTx(ctx context.Context, fn func(ctx context.Context, tx ports.ILedgerTx) error) error {
	tx, err := lr.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(ctx, &ledgerTx{tx: tx, locked: make(map[string]bool)}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx     pgx.Tx
	locked map[string]bool
}

func (lt *ledgerTx) FindAccountByOwner(ctx context.Context, ownerID string) (model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM wallets WHERE driver_id = $1`
	return scanAccount(lt.tx.QueryRow(ctx, q, ownerID))
}

func (lt *ledgerTx) FindAccountByAddress(ctx context.Context, address string) (model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM wallets WHERE wallet_address = $1`
	return scanAccount(lt.tx.QueryRow(ctx, q, address))
}

func (lt *ledgerTx) LockAccounts(ctx context.Context, ids ...string) (map[string]model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := lt.tx.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Account, len(ids))
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[acc.ID] = acc
		lt.locked[acc.ID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, myerrors.ErrAccountNotFound
		}
	}
	return out, nil
}

func (lt *ledgerTx) UpdateBalance(ctx context.Context, accountID string, available decimal.Decimal) error {
	if !lt.locked[accountID] {
		return ports.ErrNotLocked
	}
	q := `UPDATE wallets SET available_balance = $1::numeric, updated_at = now() WHERE id = $2`
	if _, err := lt.tx.Exec(ctx, q, available.String(), accountID); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func (lt *ledgerTx) AppendTransaction(ctx context.Context, rec model.Transaction) (model.Transaction, error) {
	q := `INSERT INTO wallet_transactions (id, wallet_id, driver_id, amount, type, source, description, transfer_id)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, NULLIF($8, ''))
		RETURNING created_at`

	rec.ID = uuid.NewString()
	err := lt.tx.QueryRow(ctx, q,
		rec.ID,
		rec.AccountID,
		rec.OwnerID,
		rec.Amount.String(),
		rec.Direction,
		rec.Source,
		rec.Description,
		rec.TransferID,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("ledger entry failed: %w", err)
	}
	return rec, nil
}

func (lt *ledgerTx) AppendTransfer(ctx context.Context, rec model.Transfer) (model.Transfer, error) {
	q := `INSERT INTO wallet_transfers (id, sender_wallet_id, receiver_wallet_id, sender_id, receiver_id, amount, note)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
		RETURNING created_at`

	rec.ID = uuid.NewString()
	err := lt.tx.QueryRow(ctx, q,
		rec.ID,
		rec.SenderAccountID,
		rec.ReceiverAccountID,
		rec.SenderID,
		rec.ReceiverID,
		rec.Amount.String(),
		rec.Note,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return model.Transfer{}, fmt.Errorf("transfer insert failed: %w", err)
	}
	return rec, nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var (
		acc                model.Account
		available, pending string
	)
	err := row.Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.Address,
		&acc.Currency,
		&available,
		&pending,
		&acc.Active,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, myerrors.ErrAccountNotFound
		}
		return model.Account{}, err
	}
	if acc.Available, err = decimal.NewFromString(available); err != nil {
		return model.Account{}, fmt.Errorf("parse balance of %s: %w", acc.ID, err)
	}
	if acc.Pending, err = decimal.NewFromString(pending); err != nil {
		return model.Account{}, fmt.Errorf("parse pending balance of %s: %w", acc.ID, err)
	}
	return acc, nil
}

package memdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"gride/internal/wallet-service/core/domain/model"
	"gride/internal/wallet-service/core/myerrors"
	"gride/internal/wallet-service/core/ports"

	"github.com/shopspring/decimal"
)

func seed(t *testing.T, l *Ledger, owner, address string, balance int64) model.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := l.CreateAccount(ctx, model.Account{OwnerID: owner, Address: address, Currency: "GYD"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	err = l.WithinTx(ctx, func(ctx context.Context, tx ports.ILedgerTx) error {
		if _, err := tx.LockAccounts(ctx, acc.ID); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, acc.ID, decimal.NewFromInt(balance))
	})
	if err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	acc.Available = decimal.NewFromInt(balance)
	return acc
}

func TestCreateAccountConflicts(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	seed(t, l, "d1", "GR0000000001", 0)

	if _, err := l.CreateAccount(ctx, model.Account{OwnerID: "d1", Address: "GR0000000002"}); !errors.Is(err, ports.ErrAccountExists) {
		t.Errorf("same owner: got %v", err)
	}
	if _, err := l.CreateAccount(ctx, model.Account{OwnerID: "d2", Address: "GR0000000001"}); !errors.Is(err, ports.ErrAddressTaken) {
		t.Errorf("same address: got %v", err)
	}
	if _, err := l.GetAccountByOwner(ctx, "nobody"); !errors.Is(err, myerrors.ErrAccountNotFound) {
		t.Errorf("missing owner: got %v", err)
	}
}

func TestWithinTxDiscardsOnError(t *testing.T) {
	l := NewLedger()
	acc := seed(t, l, "d1", "GR0000000001", 100)
	boom := errors.New("boom")

	err := l.WithinTx(context.Background(), func(ctx context.Context, tx ports.ILedgerTx) error {
		if _, err := tx.LockAccounts(ctx, acc.ID); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, acc.ID, decimal.NewFromInt(10)); err != nil {
			return err
		}
		if _, err := tx.AppendTransaction(ctx, model.NewDebit(acc, decimal.NewFromInt(90), model.SourcePayout, "x")); err != nil {
			return err
		}
		got, err := tx.FindAccountByOwner(ctx, "d1")
		if err != nil || !got.Available.Equal(decimal.NewFromInt(10)) {
			t.Errorf("staged balance not visible inside unit: %v %v", got.Available, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx = %v", err)
	}

	got, _ := l.GetAccountByOwner(context.Background(), "d1")
	if !got.Available.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", got.Available)
	}
	if _, txs, _ := l.Snapshot(); len(txs) != 0 {
		t.Errorf("transactions = %d, want 0", len(txs))
	}

	// the lock must have been released
	done := make(chan error, 1)
	go func() {
		done <- l.WithinTx(context.Background(), func(ctx context.Context, tx ports.ILedgerTx) error {
			_, err := tx.LockAccounts(ctx, acc.ID)
			return err
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("relock: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("account lock was not released")
	}
}

func TestUpdateBalanceRequiresLock(t *testing.T) {
	l := NewLedger()
	acc := seed(t, l, "d1", "GR0000000001", 100)

	err := l.WithinTx(context.Background(), func(ctx context.Context, tx ports.ILedgerTx) error {
		return tx.UpdateBalance(ctx, acc.ID, decimal.NewFromInt(1))
	})
	if !errors.Is(err, ports.ErrNotLocked) {
		t.Fatalf("got %v, want ErrNotLocked", err)
	}
}

func TestLockWaitHonoursContext(t *testing.T) {
	l := NewLedger()
	acc := seed(t, l, "d1", "GR0000000001", 100)

	locked := make(chan struct{})
	release := make(chan struct{})
	go l.WithinTx(context.Background(), func(ctx context.Context, tx ports.ILedgerTx) error {
		if _, err := tx.LockAccounts(ctx, acc.ID); err != nil {
			return err
		}
		close(locked)
		<-release
		return nil
	})
	<-locked
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithinTx(ctx, func(ctx context.Context, tx ports.ILedgerTx) error {
		_, err := tx.LockAccounts(ctx, acc.ID)
		return err
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestListWindows(t *testing.T) {
	l := NewLedger()
	acc := seed(t, l, "d1", "GR0000000001", 0)
	for i := 0; i < 5; i++ {
		err := l.WithinTx(context.Background(), func(ctx context.Context, tx ports.ILedgerTx) error {
			_, err := tx.AppendTransaction(ctx, model.NewCredit(acc, decimal.NewFromInt(int64(i+1)), model.SourceAdjustment, "x"))
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, _ := l.ListTransactions(context.Background(), "d1", 2, 1)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// newest first: amounts 5,4,3,... so offset 1 starts at 4
	if !got[0].Amount.Equal(decimal.NewFromInt(4)) {
		t.Errorf("first amount = %s, want 4", got[0].Amount)
	}
	if got, _ := l.ListTransactions(context.Background(), "d1", 10, 10); len(got) != 0 {
		t.Errorf("past end len = %d", len(got))
	}
}

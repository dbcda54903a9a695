package services

import (
	"context"
	"errors"
	"fmt"

	"gride/internal/mylogger"
	"gride/internal/wallet-service/core/domain/dto"
	"gride/internal/wallet-service/core/domain/model"
	"gride/internal/wallet-service/core/myerrors"
	"gride/internal/wallet-service/core/ports"

	"github.com/shopspring/decimal"
)

const (
	OverviewTransactions = 10
	DefaultPageLimit     = 50
	MaxPageLimit         = 200
	AmountPlaces         = 2

	createAccountAttempts = 5
)

// MaxAmount is the largest value a NUMERIC(14, 2) ledger column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

type WalletService struct {
	mylog      mylogger.Logger
	repo       ports.ILedgerRepo
	events     ports.IWalletEvents
	currency   string
	newAddress func() string
}

var _ ports.IWalletService = (*WalletService)(nil)

// NewWalletService wires the engine. events may be nil when no broker is configured.
func NewWalletService(log mylogger.Logger, repo ports.ILedgerRepo, events ports.IWalletEvents, currency string) *WalletService {
	return &WalletService{
		mylog:      log,
		repo:       repo,
		events:     events,
		currency:   currency,
		newAddress: NewWalletAddress,
	}
}

func (ws *WalletService) GetOverview(ctx context.Context, ownerID string) (dto.WalletOverviewDto, error) {
	acc, err := ws.ensureAccount(ctx, ownerID)
	if err != nil {
		return dto.WalletOverviewDto{}, err
	}

	txs, err := ws.repo.ListTransactions(ctx, ownerID, OverviewTransactions, 0)
	if err != nil {
		return dto.WalletOverviewDto{}, fmt.Errorf("list transactions: %w", err)
	}

	return dto.WalletOverviewDto{Wallet: acc, Transactions: nonNil(txs)}, nil
}

func (ws *WalletService) ListTransactions(ctx context.Context, ownerID string, limit, offset int) ([]model.Transaction, error) {
	limit, offset = page(limit, offset)
	txs, err := ws.repo.ListTransactions(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return nonNil(txs), nil
}

func (ws *WalletService) ListTransfers(ctx context.Context, ownerID string, limit, offset int) ([]model.Transfer, error) {
	limit, offset = page(limit, offset)
	transfers, err := ws.repo.ListTransfers(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	if transfers == nil {
		transfers = []model.Transfer{}
	}
	return transfers, nil
}

// RequestPayout moves amount out of the owner's available balance and logs
// one debit tagged "payout".
func (ws *WalletService) RequestPayout(ctx context.Context, ownerID string, amount decimal.Decimal, method, note string) (dto.PayoutResponseDto, error) {
	log := ws.mylog.Action("RequestPayout").With("driver_id", ownerID)

	if err := validateAmount(amount); err != nil {
		return dto.PayoutResponseDto{}, err
	}

	description := note
	if description == "" {
		if method == "" {
			method = "wallet"
		}
		description = fmt.Sprintf("Payout requested via %s", method)
	}

	var res dto.PayoutResponseDto
	err := ws.repo.WithinTx(ctx, func(ctx context.Context, tx ports.ILedgerTx) error {
		acc, err := tx.FindAccountByOwner(ctx, ownerID)
		if err != nil {
			return err
		}

		locked, err := tx.LockAccounts(ctx, acc.ID)
		if err != nil {
			return err
		}
		acc = locked[acc.ID]

		if amount.GreaterThan(acc.Available) {
			return myerrors.ErrInsufficientFunds
		}

		newBalance := acc.Available.Sub(amount)
		if err := tx.UpdateBalance(ctx, acc.ID, newBalance); err != nil {
			return err
		}

		rec, err := tx.AppendTransaction(ctx, model.NewDebit(acc, amount, model.SourcePayout, description))
		if err != nil {
			return err
		}

		acc.Available = newBalance
		res = dto.PayoutResponseDto{Wallet: acc, Transaction: rec}
		return nil
	})
	if err != nil {
		return dto.PayoutResponseDto{}, ws.fail(log, "payout failed", err)
	}

	log.Info("payout requested", "amount", amount.String(), "balance", res.Wallet.Available.String())
	ws.announce(log, func(ctx context.Context) error {
		return ws.events.PayoutRequested(ctx, res.Transaction)
	})
	return res, nil
}

// SendMoney moves amount from the sender's wallet to the wallet at
// receiverAddress. The balances, the transfer record and both transaction
// records are written in one unit of work.
func (ws *WalletService) SendMoney(ctx context.Context, senderID, receiverAddress string, amount decimal.Decimal, note string) (dto.TransferResponseDto, error) {
	log := ws.mylog.Action("SendMoney").With("sender_id", senderID, "receiver_address", receiverAddress)

	if err := validateAmount(amount); err != nil {
		return dto.TransferResponseDto{}, err
	}
	if receiverAddress == "" {
		return dto.TransferResponseDto{}, myerrors.ErrReceiverNotFound
	}

	var res dto.TransferResponseDto
	err := ws.repo.WithinTx(ctx, func(ctx context.Context, tx ports.ILedgerTx) error {
		receiver, err := tx.FindAccountByAddress(ctx, receiverAddress)
		if err != nil {
			if errors.Is(err, myerrors.ErrAccountNotFound) {
				return myerrors.ErrReceiverNotFound
			}
			return err
		}

		sender, err := tx.FindAccountByOwner(ctx, senderID)
		if err != nil {
			return err
		}

		if receiver.ID == sender.ID || receiver.OwnerID == senderID {
			return myerrors.ErrSelfTransfer
		}

		locked, err := tx.LockAccounts(ctx, sender.ID, receiver.ID)
		if err != nil {
			return err
		}
		sender, receiver = locked[sender.ID], locked[receiver.ID]

		if amount.GreaterThan(sender.Available) {
			return myerrors.ErrInsufficientFunds
		}

		senderBalance := sender.Available.Sub(amount)
		receiverBalance := receiver.Available.Add(amount)
		if receiverBalance.GreaterThan(MaxAmount) {
			return errBalanceLimit
		}
		if err := tx.UpdateBalance(ctx, sender.ID, senderBalance); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, receiver.ID, receiverBalance); err != nil {
			return err
		}

		transfer, err := tx.AppendTransfer(ctx, model.Transfer{
			SenderAccountID:   sender.ID,
			ReceiverAccountID: receiver.ID,
			SenderID:          sender.OwnerID,
			ReceiverID:        receiver.OwnerID,
			Amount:            amount,
			Note:              note,
		})
		if err != nil {
			return err
		}

		debit := model.NewDebit(sender, amount, model.SourceTransfer, orDefault(note, "Money sent"))
		debit.TransferID = transfer.ID
		if debit, err = tx.AppendTransaction(ctx, debit); err != nil {
			return err
		}

		credit := model.NewCredit(receiver, amount, model.SourceTransfer, orDefault(note, "Money received"))
		credit.TransferID = transfer.ID
		if credit, err = tx.AppendTransaction(ctx, credit); err != nil {
			return err
		}

		sender.Available = senderBalance
		res = dto.TransferResponseDto{
			Transfer: transfer,
			Wallet:   sender,
			Entries:  []model.Transaction{debit, credit},
		}
		return nil
	})
	if err != nil {
		return dto.TransferResponseDto{}, ws.fail(log, "transfer failed", err)
	}

	log.Info("transfer committed", "transfer_id", res.Transfer.ID, "amount", amount.String())
	ws.announce(log, func(ctx context.Context) error {
		return ws.events.TransferCompleted(ctx, res.Transfer)
	})
	return res, nil
}

func (ws *WalletService) GetReceiveInfo(ctx context.Context, ownerID string) (dto.ReceiveInfoDto, error) {
	acc, err := ws.repo.GetAccountByOwner(ctx, ownerID)
	if err != nil {
		return dto.ReceiveInfoDto{}, err
	}
	if acc.Address == "" {
		return dto.ReceiveInfoDto{}, myerrors.ErrAccountNotFound
	}
	return dto.ReceiveInfoDto{
		WalletAddress: acc.Address,
		QRString:      QRString(acc.Address),
	}, nil
}

// ApplyAdjustment credits (positive amount) or debits (negative amount) the
// owner's wallet, creating the wallet if needed. A debit never takes the
// balance below zero.
func (ws *WalletService) ApplyAdjustment(ctx context.Context, ownerID string, amount decimal.Decimal, description string) (dto.AdjustmentResponseDto, error) {
	log := ws.mylog.Action("ApplyAdjustment").With("driver_id", ownerID)

	if err := validateAmount(amount.Abs()); err != nil {
		return dto.AdjustmentResponseDto{}, err
	}

	if _, err := ws.ensureAccount(ctx, ownerID); err != nil {
		return dto.AdjustmentResponseDto{}, err
	}

	var res dto.AdjustmentResponseDto
	err := ws.repo.WithinTx(ctx, func(ctx context.Context, tx ports.ILedgerTx) error {
		acc, err := tx.FindAccountByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		locked, err := tx.LockAccounts(ctx, acc.ID)
		if err != nil {
			return err
		}
		acc = locked[acc.ID]

		newBalance := acc.Available.Add(amount)
		if newBalance.IsNegative() {
			return myerrors.ErrInsufficientFunds
		}
		if newBalance.GreaterThan(MaxAmount) {
			return errBalanceLimit
		}
		if err := tx.UpdateBalance(ctx, acc.ID, newBalance); err != nil {
			return err
		}

		rec := model.NewCredit(acc, amount, model.SourceAdjustment, description)
		if amount.IsNegative() {
			rec = model.NewDebit(acc, amount, model.SourceAdjustment, description)
		}
		if rec, err = tx.AppendTransaction(ctx, rec); err != nil {
			return err
		}

		acc.Available = newBalance
		res = dto.AdjustmentResponseDto{Wallet: acc, Transaction: rec}
		return nil
	})
	if err != nil {
		return dto.AdjustmentResponseDto{}, ws.fail(log, "adjustment failed", err)
	}

	log.Info("adjustment applied", "amount", amount.String())
	ws.announce(log, func(ctx context.Context) error {
		return ws.events.AdjustmentApplied(ctx, res.Transaction)
	})
	return res, nil
}

// ensureAccount returns the owner's wallet, creating it with a fresh address
// when it does not exist yet.
func (ws *WalletService) ensureAccount(ctx context.Context, ownerID string) (model.Account, error) {
	acc, err := ws.repo.GetAccountByOwner(ctx, ownerID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, myerrors.ErrAccountNotFound) {
		return model.Account{}, fmt.Errorf("get wallet: %w", err)
	}

	log := ws.mylog.Action("CreateWallet").With("driver_id", ownerID)
	for i := 0; i < createAccountAttempts; i++ {
		acc, err = ws.repo.CreateAccount(ctx, model.Account{
			OwnerID:   ownerID,
			Address:   ws.newAddress(),
			Currency:  ws.currency,
			Available: decimal.Zero,
			Pending:   decimal.Zero,
			Active:    true,
		})
		switch {
		case err == nil:
			log.Info("wallet created", "wallet_address", acc.Address)
			return acc, nil
		case errors.Is(err, ports.ErrAccountExists):
			// created concurrently by another request
			return ws.repo.GetAccountByOwner(ctx, ownerID)
		case errors.Is(err, ports.ErrAddressTaken):
			log.Warn("wallet address collision, regenerating", "attempt", i+1)
			continue
		default:
			return model.Account{}, fmt.Errorf("create wallet: %w", err)
		}
	}
	return model.Account{}, fmt.Errorf("create wallet: %w", ports.ErrAddressTaken)
}

// fail logs unexpected store errors. Caller-visible wallet errors pass through untouched.
func (ws *WalletService) fail(log mylogger.Logger, msg string, err error) error {
	if myerrors.KindOf(err) != myerrors.KindInternal {
		log.Warn(msg, "kind", string(myerrors.KindOf(err)))
		return err
	}
	log.Error(msg, err)
	return fmt.Errorf("%s: %w", msg, err)
}

// announce publishes a committed change without blocking the caller on the
// broker for longer than the publish timeout.
func (ws *WalletService) announce(log mylogger.Logger, publish func(ctx context.Context) error) {
	if ws.events == nil {
		return
	}
	if err := publish(context.Background()); err != nil {
		log.Error("cannot publish wallet event", err)
	}
}

var errBalanceLimit = &myerrors.Error{
	Kind:    myerrors.KindInvalidAmount,
	Message: "resulting balance exceeds " + MaxAmount.StringFixed(AmountPlaces),
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return myerrors.ErrInvalidAmount
	}
	if amount.GreaterThan(MaxAmount) {
		return &myerrors.Error{
			Kind:    myerrors.KindInvalidAmount,
			Message: "amount must not exceed " + MaxAmount.StringFixed(AmountPlaces),
		}
	}
	if !amount.Equal(amount.Truncate(AmountPlaces)) {
		return &myerrors.Error{
			Kind:    myerrors.KindInvalidAmount,
			Message: fmt.Sprintf("amount must have at most %d decimal places", AmountPlaces),
		}
	}
	return nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil(txs []model.Transaction) []model.Transaction {
	if txs == nil {
		return []model.Transaction{}
	}
	return txs
}

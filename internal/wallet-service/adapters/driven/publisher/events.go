package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gride/internal/bm"
	"gride/internal/wallet-service/core/domain/model"
	"gride/internal/wallet-service/core/ports"

	"github.com/shopspring/decimal"
)

const (
	notificationType = "wallet"
	publishTimeout   = 3 * time.Second
)

type TransferCompletedMessage struct {
	TransferID        string          `json:"transfer_id"`
	SenderID          string          `json:"sender_id"`
	ReceiverID        string          `json:"receiver_id"`
	SenderAccountID   string          `json:"sender_wallet_id"`
	ReceiverAccountID string          `json:"receiver_wallet_id"`
	Amount            decimal.Decimal `json:"amount"`
	Note              string          `json:"note,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

type TransactionMessage struct {
	TransactionID string          `json:"transaction_id"`
	DriverID      string          `json:"driver_id"`
	WalletID      string          `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	Source        string          `json:"source"`
	Description   string          `json:"description"`
	Timestamp     time.Time       `json:"timestamp"`
}

// WalletEvents publishes committed wallet changes to the topic exchange and
// tells the receiving driver about incoming money.
type WalletEvents struct {
	broker bm.IBroker
	now    func() time.Time
}

var _ ports.IWalletEvents = (*WalletEvents)(nil)

func NewWalletEvents(broker bm.IBroker) *WalletEvents {
	return &WalletEvents{broker: broker, now: time.Now}
}

func (we *WalletEvents) TransferCompleted(ctx context.Context, t model.Transfer) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := TransferCompletedMessage{
		TransferID:        t.ID,
		SenderID:          t.SenderID,
		ReceiverID:        t.ReceiverID,
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		Amount:            t.Amount,
		Note:              t.Note,
		Timestamp:         we.stamp(t.CreatedAt),
	}
	errEvent := we.broker.PublishJSON(ctx, bm.Exchange, bm.RoutingTransferCompleted, msg)

	notice := bm.DriverNotification{
		DriverID:  t.ReceiverID,
		Title:     "Money received",
		Message:   fmt.Sprintf("You received %s", t.Amount.StringFixed(2)),
		Type:      notificationType,
		CreatedAt: msg.Timestamp,
	}
	errNotify := we.broker.PublishJSON(ctx, bm.Exchange, bm.RoutingDriverNotify, notice)

	return errors.Join(errEvent, errNotify)
}

func (we *WalletEvents) PayoutRequested(ctx context.Context, rec model.Transaction) error {
	return we.publishTransaction(ctx, bm.RoutingPayoutRequested, rec)
}

func (we *WalletEvents) AdjustmentApplied(ctx context.Context, rec model.Transaction) error {
	return we.publishTransaction(ctx, bm.RoutingAdjustmentApplied, rec)
}

func (we *WalletEvents) publishTransaction(ctx context.Context, routingKey string, rec model.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return we.broker.PublishJSON(ctx, bm.Exchange, routingKey, TransactionMessage{
		TransactionID: rec.ID,
		DriverID:      rec.OwnerID,
		WalletID:      rec.AccountID,
		Amount:        rec.Amount,
		Source:        rec.Source,
		Description:   rec.Description,
		Timestamp:     we.stamp(rec.CreatedAt),
	})
}

func (we *WalletEvents) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return we.now().UTC()
	}
	return t.UTC()
}

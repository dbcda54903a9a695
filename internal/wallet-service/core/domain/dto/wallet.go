package dto

import (
	"gride/internal/wallet-service/core/domain/model"

	"github.com/shopspring/decimal"
)

type PayoutRequestDto struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"omitempty,max=32"`
	Note   string          `json:"note" validate:"max=255"`
}

// SendMoneyRequestDto accepts receiver_wallet_id as an older name for receiver_address.
type SendMoneyRequestDto struct {
	ReceiverAddress  string          `json:"receiver_address" validate:"required_without=ReceiverWalletID,max=64"`
	ReceiverWalletID string          `json:"receiver_wallet_id" validate:"max=64"`
	Amount           decimal.Decimal `json:"amount"`
	Note             string          `json:"note" validate:"max=255"`
}

// Address returns the receiver address from whichever field was sent.
func (r SendMoneyRequestDto) Address() string {
	if r.ReceiverAddress != "" {
		return r.ReceiverAddress
	}
	return r.ReceiverWalletID
}

type AdjustmentRequestDto struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required,max=255"`
}

type WalletOverviewDto struct {
	Wallet       model.Account       `json:"wallet"`
	Transactions []model.Transaction `json:"transactions"`
}

type ReceiveInfoDto struct {
	WalletAddress string `json:"wallet_address"`
	QRString      string `json:"qr_string"`
}

type PayoutResponseDto struct {
	Wallet      model.Account     `json:"wallet"`
	Transaction model.Transaction `json:"transaction"`
}

type TransferResponseDto struct {
	Transfer model.Transfer      `json:"transfer"`
	Wallet   model.Account       `json:"wallet"`
	Entries  []model.Transaction `json:"entries"`
}

type AdjustmentResponseDto struct {
	Wallet      model.Account     `json:"wallet"`
	Transaction model.Transaction `json:"transaction"`
}

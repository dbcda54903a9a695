package ports

import (
	"context"

	"gride/internal/wallet-service/core/domain/dto"
	"gride/internal/wallet-service/core/domain/model"

	"github.com/shopspring/decimal"
)

type IWalletService interface {
	// GetOverview returns the wallet, creating it on first access, with its latest transactions.
	GetOverview(ctx context.Context, ownerID string) (dto.WalletOverviewDto, error)
	ListTransactions(ctx context.Context, ownerID string, limit, offset int) ([]model.Transaction, error)
	ListTransfers(ctx context.Context, ownerID string, limit, offset int) ([]model.Transfer, error)

	RequestPayout(ctx context.Context, ownerID string, amount decimal.Decimal, method, note string) (dto.PayoutResponseDto, error)
	SendMoney(ctx context.Context, senderID, receiverAddress string, amount decimal.Decimal, note string) (dto.TransferResponseDto, error)
	GetReceiveInfo(ctx context.Context, ownerID string) (dto.ReceiveInfoDto, error)
	ApplyAdjustment(ctx context.Context, ownerID string, amount decimal.Decimal, description string) (dto.AdjustmentResponseDto, error)
}

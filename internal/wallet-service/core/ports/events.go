package ports

import (
	"context"

	"gride/internal/wallet-service/core/domain/model"
)

// IWalletEvents announces committed wallet changes. Delivery is best-effort:
// a failure never undoes the committed change.
type IWalletEvents interface {
	TransferCompleted(ctx context.Context, t model.Transfer) error
	PayoutRequested(ctx context.Context, rec model.Transaction) error
	AdjustmentApplied(ctx context.Context, rec model.Transaction) error
}

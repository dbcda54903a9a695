package ports

import (
	"context"

	"gride/internal/bm"
	"gride/internal/realtime-service/core/domain/model"
)

// INotifier delivers a notification to the live sessions of a driver.
// Delivery is best-effort: it never fails and returns how many sessions
// the message was handed to.
type INotifier interface {
	NotifyDriver(ctx context.Context, driverID, title, message, notificationType string) int
}

type INotificationRepo interface {
	Save(ctx context.Context, n model.Notification) (model.Notification, error)
}

type INotificationService interface {
	Dispatch(ctx context.Context, msg bm.DriverNotification) error
}

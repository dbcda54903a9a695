package services

import (
	"context"
	"fmt"
	"time"

	"gride/internal/bm"
	"gride/internal/mylogger"
	"gride/internal/realtime-service/core/domain/model"
	"gride/internal/realtime-service/core/myerrors"
	"gride/internal/realtime-service/core/ports"
)

// NotificationService records a driver notification (when a repository is
// configured) and then hands it to the live sessions of the driver.
type NotificationService struct {
	mylog    mylogger.Logger
	repo     ports.INotificationRepo
	notifier ports.INotifier
	now      func() time.Time
}

var _ ports.INotificationService = (*NotificationService)(nil)

func NewNotificationService(log mylogger.Logger, repo ports.INotificationRepo, notifier ports.INotifier) *NotificationService {
	return &NotificationService{
		mylog:    log,
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

func (ns *NotificationService) Dispatch(ctx context.Context, msg bm.DriverNotification) error {
	log := ns.mylog.Action("DispatchNotification").With("driver_id", msg.DriverID, "type", msg.Type)

	if msg.DriverID == "" || msg.Title == "" {
		notificationsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: driver_id and title are required", myerrors.ErrValidation)
	}

	n := model.Notification{
		DriverID:  msg.DriverID,
		Title:     msg.Title,
		Message:   msg.Message,
		Type:      msg.Type,
		CreatedAt: msg.CreatedAt,
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = ns.now().UTC()
	}

	if ns.repo != nil {
		saved, err := ns.repo.Save(ctx, n)
		if err != nil {
			notificationsTotal.WithLabelValues("persist_failed").Inc()
			log.Error("cannot persist notification", err)
			return fmt.Errorf("persist notification: %w", err)
		}
		n = saved
	}

	delivered := ns.notifier.NotifyDriver(ctx, n.DriverID, n.Title, n.Message, n.Type)
	if delivered == 0 {
		notificationsTotal.WithLabelValues("offline").Inc()
		log.Debug("driver has no live session")
		return nil
	}
	notificationsTotal.WithLabelValues("delivered").Inc()
	log.Info("notification delivered", "sessions", delivered)
	return nil
}

package notify

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
)

// Mailer delivers a plain-text email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Publisher fans a stored notification out to live subscribers
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// Dispatcher runs post-commit effects. Every failure is logged and swallowed.
type Dispatcher struct {
	notifications repository.NotificationRepository
	mailer        Mailer
	publisher     Publisher
	logger        *zap.Logger
	now           func() time.Time
}

// NewDispatcher creates a Dispatcher. publisher may be nil.
func NewDispatcher(notifications repository.NotificationRepository, mailer Mailer, publisher Publisher, logger *zap.Logger) *Dispatcher {
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &Dispatcher{
		notifications: notifications,
		mailer:        mailer,
		publisher:     publisher,
		logger:        logger.Named("notify"),
		now:           time.Now,
	}
}

// Dispatch runs each effect independently. It never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, effects ...Effect) {
	for _, e := range effects {
		if err := d.run(ctx, e); err != nil {
			metrics.NotificationsDispatched.WithLabelValues(string(e.Kind), "failed").Inc()
			d.logger.Warn("notification effect failed",
				zap.String("effect", e.String()),
				zap.Error(err),
			)
			continue
		}
		metrics.NotificationsDispatched.WithLabelValues(string(e.Kind), "sent").Inc()
	}
}

func (d *Dispatcher) run(ctx context.Context, e Effect) error {
	msg := e.render()

	var firstErr error
	if msg.persist && e.UserID != 0 {
		n := &models.Notification{
			UserID:       e.UserID,
			Type:         e.Kind,
			Title:        msg.title,
			Message:      msg.body,
			Priority:     msg.priority,
			RelatedID:    e.RelatedID,
			RelatedModel: e.RelatedModel,
			Metadata:     e.Data,
			CreatedBy:    e.CreatedBy,
			ExpiresAt:    d.now().Add(constants.NotificationTTL),
		}
		if err := d.notifications.Create(ctx, n); err != nil {
			firstErr = apierrors.Dependency("failed to store notification", err)
		} else if d.publisher != nil {
			if err := d.publisher.Publish(ctx, n); err != nil {
				d.logger.Warn("notification publish failed", zap.Uint64("notification_id", n.ID), zap.Error(err))
			}
		}
	}

	if e.Email != "" && msg.mail != "" {
		if err := d.mailer.Send(ctx, e.Email, msg.subject, msg.mail); err != nil && firstErr == nil {
			firstErr = apierrors.Dependency("failed to send email", err)
		}
	}
	return firstErr
}

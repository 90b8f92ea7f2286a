package service

import (
	"context"
	"fmt"

	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/notify"
	"portal/internal/repository"

	"go.uber.org/zap"
)

// TimeEntryNotifier mails the office when a user who opted in logs time.
type TimeEntryNotifier struct {
	users  repository.UserRepository
	mailer notify.Mailer
	from   string
	logger *zap.Logger
}

func NewTimeEntryNotifier(users repository.UserRepository, mailer notify.Mailer, from string, logger *zap.Logger) *TimeEntryNotifier {
	return &TimeEntryNotifier{users: users, mailer: mailer, from: from, logger: logger}
}

func (n *TimeEntryNotifier) Register(bus *hooks.Bus) {
	bus.OnAfterSave(model.KindTimeEntry, n.onSave)
}

// onSave never fails the triggering write; delivery problems are logged.
func (n *TimeEntryNotifier) onSave(ctx context.Context, m hooks.Mutation) error {
	if !m.Created || n.from == "" || !n.mailer.Enabled() {
		return nil
	}
	entry, ok := m.Entity.(*model.TimeEntry)
	if !ok {
		return nil
	}
	user, err := n.users.Get(ctx, entry.UserID)
	if err != nil {
		n.logger.Warn("notification skipped", zap.String("time_entry_id", m.ID.String()), zap.Error(err))
		return nil
	}
	if user.Profile == nil || !user.Profile.Mail {
		return nil
	}

	subject := fmt.Sprintf("New time entry created by %s", user.Username)
	body := fmt.Sprintf("%s logged %s hours on %s.\n\n%s\n",
		user.Username, entry.Hours.StringFixed(2), entry.Date.Format(dateLayout), entry.Description)
	if err := n.mailer.Send(ctx, n.from, subject, body); err != nil {
		n.logger.Warn("notification mail failed",
			zap.String("time_entry_id", m.ID.String()),
			zap.String("username", user.Username),
			zap.Error(err),
		)
	}
	return nil
}

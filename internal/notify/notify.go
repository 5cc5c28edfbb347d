// Package notify tells interested parties that feedback was created: the log
// line lets dashboards refresh their unread badges, and the mail channel
// writes to the recipient team's inbox when one is configured.
package notify

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
)

type Notifier interface {
	FeedbackCreated(ctx context.Context, f domain.Feedback) error
}

// LogNotifier records the event in the application log.
type LogNotifier struct{}

func (LogNotifier) FeedbackCreated(ctx context.Context, f domain.Feedback) error {
	logger.WithContext(ctx).WithFields(map[string]interface{}{
		"feedback_id":    f.ID,
		"opportunity_id": f.OpportunityID,
		"from_team":      f.FromTeam,
		"to_team":        f.ToTeam,
	}).Info("Feedback created, unread views invalidated")
	return nil
}

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier e-mails the recipient team. Teams without an address are skipped.
type MailNotifier struct {
	sender     Sender
	from       string
	teamEmails map[string]string
}

func NewMailNotifier(sender Sender, from string, teamEmails map[string]string) *MailNotifier {
	return &MailNotifier{sender: sender, from: from, teamEmails: teamEmails}
}

// NewSMTPNotifier dials host:port with the given credentials for every message.
func NewSMTPNotifier(host string, port int, user, password, from string, teamEmails map[string]string) *MailNotifier {
	return NewMailNotifier(gomail.NewDialer(host, port, user, password), from, teamEmails)
}

func (n *MailNotifier) FeedbackCreated(ctx context.Context, f domain.Feedback) error {
	to, ok := n.teamEmails[f.ToTeam]
	if !ok || to == "" {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("[PLM] Feedback from %s on %s", f.FromTeam, f.OpportunityID))
	msg.SetBody("text/plain", fmt.Sprintf("%s wrote to %s about opportunity %s:\n\n%s\n",
		f.FromTeam, f.ToTeam, f.OpportunityID, f.Message))

	if err := n.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send feedback mail to %s: %w", to, err)
	}
	return nil
}

// Multi calls every notifier and joins their errors.
type Multi []Notifier

func (m Multi) FeedbackCreated(ctx context.Context, f domain.Feedback) error {
	var errs []error
	for _, n := range m {
		if err := n.FeedbackCreated(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

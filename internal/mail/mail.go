// Package mail sends account notifications.
package mail

import (
	"context"
	"fmt"
	"log/slog"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const (
	welcomeSubject        = "Welcome to Account Service"
	profileUpdateSubject  = "Your profile has been updated"
	adminPromotionSubject = "You have been granted admin privileges"
)

// Notifier renders the account notification templates and hands them to a
// Sender.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) SendWelcome(ctx context.Context, to, firstName, lastName string) error {
	body := fmt.Sprintf("Dear %s,\n\n"+
		"Welcome! Your registration has been completed successfully and you can now use all our services.\n\n"+
		"If you have any questions, feel free to contact us.\n\n"+
		"Best regards,\nThe Team", displayName(firstName, lastName))
	return n.send(ctx, Message{To: to, Subject: welcomeSubject, Body: body})
}

func (n *Notifier) SendProfileUpdate(ctx context.Context, to, firstName, lastName string) error {
	body := fmt.Sprintf("Dear %s,\n\n"+
		"Your profile information has been updated successfully.\n\n"+
		"If you did not make this change, please contact us immediately.\n\n"+
		"Best regards,\nThe Team", displayName(firstName, lastName))
	return n.send(ctx, Message{To: to, Subject: profileUpdateSubject, Body: body})
}

func (n *Notifier) SendAdminPromotion(ctx context.Context, to, firstName, lastName string) error {
	body := fmt.Sprintf("Dear %s,\n\n"+
		"Congratulations! You have been granted admin privileges.\n\n"+
		"You can now access all administrative functions.\n\n"+
		"Best regards,\nThe Team", displayName(firstName, lastName))
	return n.send(ctx, Message{To: to, Subject: adminPromotionSubject, Body: body})
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %q to %s: %w", msg.Subject, msg.To, err)
	}
	return nil
}

func displayName(first, last string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return "user"
	}
}

// LogSender only logs. It is used when SMTP is not configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("mail not configured, skipping send", "to", msg.To, "subject", msg.Subject)
	return nil
}

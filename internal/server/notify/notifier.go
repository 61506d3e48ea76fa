// Package notify sends the account verification email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
)

const (
	verifyPath      = "/components/register/verify/"
	verifySubject   = "Please verify your registration"
	defaultUserName = "User"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a Message over some transport.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// TokenEncoder turns a raw verification code into its URL form.
type TokenEncoder interface {
	Encode(token string) (string, error)
}

// EmailNotifier composes verification emails and hands them to a Sender.
type EmailNotifier struct {
	codec       TokenEncoder
	sender      Sender
	frontendURL string
	logger      logging.Logger
}

func NewEmailNotifier(codec TokenEncoder, sender Sender, frontendURL string, l logging.Logger) *EmailNotifier {
	return &EmailNotifier{
		codec:       codec,
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      l.With("module", "notify"),
	}
}

// VerificationURL returns <frontendURL>/components/register/verify/<encoded>.
func (n *EmailNotifier) VerificationURL(code string) (string, error) {
	encoded, err := n.codec.Encode(code)
	if err != nil {
		return "", fmt.Errorf("encode verification code: %w", err)
	}
	return n.frontendURL + verifyPath + encoded, nil
}

// SendVerification emails u a link that redeems its verification code.
func (n *EmailNotifier) SendVerification(ctx context.Context, u *models.User) error {
	if u.VerificationCode == "" {
		return errors.New("user has no verification code")
	}

	link, err := n.VerificationURL(u.VerificationCode)
	if err != nil {
		return err
	}

	name := u.Username
	if name == "" {
		name = defaultUserName
	}
	body, err := renderVerification(name, link)
	if err != nil {
		return err
	}

	if err := n.sender.Send(ctx, Message{To: u.Email, Subject: verifySubject, HTML: body}); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	n.logger.Info(ctx, "verification email sent", "user_id", u.ID)
	return nil
}

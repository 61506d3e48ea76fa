package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
)

const charset = "UTF-8"

// sesAPI is the part of *sesv2.Client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers mail through Amazon SES.
type SESSender struct {
	client sesAPI
	from   string
}

func NewSESSender(cfg aws.Config, from string) *SESSender {
	return &SESSender{client: sesv2.NewFromConfig(cfg), from: from}
}

func (s *SESSender) Send(ctx context.Context, m Message) error {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{m.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(m.Subject), Charset: aws.String(charset)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(m.HTML), Charset: aws.String(charset)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, in); err != nil {
		return fmt.Errorf("ses: %w", err)
	}
	return nil
}

// LogSender stands in for SES when no sender address is configured. It logs
// the recipient and subject only; the body carries the verification link.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "notify", "transport", "log")}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.logger.Info(ctx, "email delivery disabled, dropping message", "to", m.To, "subject", m.Subject)
	return nil
}

package audit

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
)

// sqsAPI is the part of *sqs.Client used here.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSender posts records to one SQS queue through a single reused client.
type SQSSender struct {
	client   sqsAPI
	queueURL string
}

func NewSQSSender(cfg aws.Config, queueURL string) *SQSSender {
	return &SQSSender{client: sqs.NewFromConfig(cfg), queueURL: queueURL}
}

func (s *SQSSender) Send(ctx context.Context, body []byte) error {
	_, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sqs: %w", err)
	}
	return nil
}

// LogSender writes records to the service log when no queue is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "audit", "transport", "log")}
}

func (s *LogSender) Send(ctx context.Context, body []byte) error {
	s.logger.Info(ctx, "audit record", "record", string(body))
	return nil
}

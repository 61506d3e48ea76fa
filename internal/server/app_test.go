package server

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/audit"
	"github.com/dmitrijs2005/voucher-auth/internal/server/config"
	"github.com/dmitrijs2005/voucher-auth/internal/server/notify"
)

func TestEmailSender_Selection(t *testing.T) {
	cfg := aws.Config{Region: "eu-west-1"}

	if _, ok := emailSender(cfg, &config.Config{}, logging.Nop{}).(*notify.LogSender); !ok {
		t.Fatal("empty sender address should log emails")
	}
	if _, ok := emailSender(cfg, &config.Config{EmailFrom: "no-reply@x.io"}, logging.Nop{}).(*notify.SESSender); !ok {
		t.Fatal("configured sender address should use SES")
	}
}

func TestAuditSender_Selection(t *testing.T) {
	cfg := aws.Config{Region: "eu-west-1"}

	if _, ok := auditSender(cfg, &config.Config{}, logging.Nop{}).(*audit.LogSender); !ok {
		t.Fatal("empty queue URL should log records")
	}
	c := &config.Config{AuditQueueURL: "https://sqs.eu-west-1.amazonaws.com/123/audit"}
	if _, ok := auditSender(cfg, c, logging.Nop{}).(*audit.SQSSender); !ok {
		t.Fatal("configured queue should use SQS")
	}
}

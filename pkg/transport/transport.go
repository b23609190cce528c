// Package transport provides the outbound email and SMS collaborators. The
// delivery providers are pluggable; the log transports stand in for them in
// development and tests.
package transport

import (
	"context"
	"log/slog"

	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// LogEmail records outbound email to the log instead of delivering it.
type LogEmail struct {
	logger *slog.Logger
}

func NewLogEmail(logger *slog.Logger) *LogEmail {
	return &LogEmail{logger: logger.With("module", "email_transport")}
}

var _ protocol.EmailTransport = (*LogEmail)(nil)

func (t *LogEmail) SendEmail(ctx context.Context, from, to, subject, body string) error {
	t.logger.InfoContext(ctx, "Email dispatched",
		"from", from, "to", to, "subject", subject, "body_length", len(body))

	return nil
}

// LogSms records outbound SMS to the log instead of delivering it.
type LogSms struct {
	logger *slog.Logger
}

func NewLogSms(logger *slog.Logger) *LogSms {
	return &LogSms{logger: logger.With("module", "sms_transport")}
}

var _ protocol.SmsTransport = (*LogSms)(nil)

func (t *LogSms) SendSms(ctx context.Context, from, to, body string) error {
	t.logger.InfoContext(ctx, "SMS dispatched",
		"from", from, "to", to, "body_length", len(body))

	return nil
}

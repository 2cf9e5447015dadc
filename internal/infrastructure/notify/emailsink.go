// Package notify delivers alert events to operators.
package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"hyperfleet/internal/domain/alert"
	"hyperfleet/internal/shared/config"
	"hyperfleet/internal/shared/goroutine"
	"hyperfleet/internal/shared/logger"
)

// Sink receives alert events. Delivery is best-effort: a failing sink must
// never block or fail the monitoring pipeline.
type Sink interface {
	Emit(ctx context.Context, event alert.Event)
}

// EmailSink sends alert events over SMTP. Sends run in their own goroutine
// and failures are logged, not returned.
type EmailSink struct {
	dialer *gomail.Dialer
	from   string
	to     string
	logger logger.Interface
}

func NewEmailSink(cfg *config.EmailConfig, logger logger.Interface) *EmailSink {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &EmailSink{
		dialer: dialer,
		from:   from,
		to:     cfg.AlertTo,
		logger: logger,
	}
}

// Emit sends the event asynchronously. It returns immediately.
func (s *EmailSink) Emit(ctx context.Context, event alert.Event) {
	if s.to == "" {
		s.logger.Debugw("alert recipient not configured, skipping email",
			"event_type", event.Type,
			"endpoint_id", event.EndpointID,
		)
		return
	}

	goroutine.SafeGo(s.logger, "alert-email", func() {
		msg := gomail.NewMessage()
		msg.SetHeader("From", s.from)
		msg.SetHeader("To", s.to)
		msg.SetHeader("Subject", s.subject(event))
		msg.SetBody("text/plain", s.body(event))

		if err := s.dialer.DialAndSend(msg); err != nil {
			s.logger.Errorw("failed to send alert email",
				"event_type", event.Type,
				"endpoint_id", event.EndpointID,
				"error", err,
			)
			return
		}

		s.logger.Infow("alert email sent",
			"event_type", event.Type,
			"endpoint_id", event.EndpointID,
		)
	})
}

func (s *EmailSink) subject(event alert.Event) string {
	switch event.Type {
	case alert.EventServerOffline:
		return fmt.Sprintf("[hyperfleet] endpoint %d is offline", event.EndpointID)
	case alert.EventPerformanceDegraded:
		return fmt.Sprintf("[hyperfleet] endpoint %d is degraded", event.EndpointID)
	case alert.EventRecovered:
		return fmt.Sprintf("[hyperfleet] endpoint %d recovered", event.EndpointID)
	default:
		return fmt.Sprintf("[hyperfleet] endpoint %d: %s", event.EndpointID, event.Type)
	}
}

func (s *EmailSink) body(event alert.Event) string {
	return fmt.Sprintf(
		"Endpoint:     %d\nEvent:        %s\nSuccess rate: %.1f%%\nLatency:      %dms\nTime:         %s\n",
		event.EndpointID,
		event.Type,
		event.SuccessRate,
		event.LatencyMs,
		event.At.UTC().Format("2006-01-02 15:04:05 UTC"),
	)
}

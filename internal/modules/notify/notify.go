// README: Dashboard-link notifications (SMS via SNS or log-only), delivered fire-and-forget.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"dinecall/internal/metrics"
)

var ErrDeliveryFailed = errors.New("notification delivery failed")

type Message struct {
	SessionID    string
	Caller       string
	Summary      string
	DashboardURL string
}

const maxSummaryRunes = 200

// Body renders the SMS text. Summaries are cut to keep the message to a
// couple of SMS segments.
func (m Message) Body() string {
	summary := m.Summary
	if r := []rune(summary); len(r) > maxSummaryRunes {
		summary = strings.TrimSpace(string(r[:maxSummaryRunes])) + "..."
	}
	if summary == "" {
		return "Your restaurant picks: " + m.DashboardURL
	}
	return fmt.Sprintf("Your restaurant picks: %s\n%s", m.DashboardURL, summary)
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// SNSPublisher is the subset of the SNS client used here.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier sends the dashboard link to the caller by SMS.
type SNSNotifier struct {
	api SNSPublisher
}

func NewSNSNotifier(api SNSPublisher) *SNSNotifier {
	return &SNSNotifier{api: api}
}

func (n *SNSNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.Caller == "" {
		return fmt.Errorf("%w: no caller number for session %s", ErrDeliveryFailed, msg.SessionID)
	}
	_, err := n.api.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(msg.Caller),
		Message:     aws.String(msg.Body()),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// LogNotifier only logs the link; used when no SMS backend is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.log.Info("dashboard link ready",
		zap.String("session_id", msg.SessionID),
		zap.String("url", msg.DashboardURL))
	return nil
}

// Async delivers in the background. Failures are logged here and never reach
// the conversation.
type Async struct {
	next    Notifier
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, log *zap.Logger) *Async {
	return &Async{next: next, log: log, timeout: timeout}
}

// Send starts delivery and returns immediately.
func (a *Async) Send(msg Message) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.Notify(ctx, msg); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			a.log.Error("notification failed", zap.String("session_id", msg.SessionID), zap.Error(err))
			return
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	}()
}

// Wait blocks until in-flight deliveries finish; used on shutdown.
func (a *Async) Wait() {
	a.wg.Wait()
}

package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSNotifier(t *testing.T) {
	api := &fakeSNS{}
	n := NewSNSNotifier(api)

	err := n.Notify(context.Background(), Message{
		SessionID:    "CA1",
		Caller:       "+15551234567",
		Summary:      "Number 1, Luigi's.",
		DashboardURL: "https://dine.test/api/sessions/CA1",
	})
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "+15551234567", aws.ToString(api.inputs[0].PhoneNumber))
	assert.True(t, strings.HasPrefix(aws.ToString(api.inputs[0].Message), "Your restaurant picks: https://dine.test/api/sessions/CA1"))
}

func TestSNSNotifier_Failures(t *testing.T) {
	n := NewSNSNotifier(&fakeSNS{})
	assert.ErrorIs(t, n.Notify(context.Background(), Message{SessionID: "CA1"}), ErrDeliveryFailed)

	n = NewSNSNotifier(&fakeSNS{err: errors.New("throttled")})
	assert.ErrorIs(t, n.Notify(context.Background(), Message{SessionID: "CA1", Caller: "+1555"}), ErrDeliveryFailed)
}

func TestMessageBody_Truncates(t *testing.T) {
	body := Message{Summary: strings.Repeat("x", 300), DashboardURL: "u"}.Body()
	assert.True(t, strings.HasSuffix(body, "..."))
	assert.Less(t, len(body), 260)
}

func TestMessageBody_TruncatesOnCharacterBoundary(t *testing.T) {
	short := Message{Summary: "x" + strings.Repeat("é", 150), DashboardURL: "u"}.Body()
	assert.True(t, utf8.ValidString(short))
	assert.False(t, strings.HasSuffix(short, "..."))

	long := Message{Summary: "Café " + strings.Repeat("é", 250), DashboardURL: "u"}.Body()
	assert.True(t, utf8.ValidString(long))
	assert.True(t, strings.HasSuffix(long, "..."))
	summary := strings.TrimPrefix(long, "Your restaurant picks: u\n")
	assert.Equal(t, maxSummaryRunes+3, utf8.RuneCountInString(summary))
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Message) error {
	return ErrDeliveryFailed
}

func TestAsync_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := NewAsync(failingNotifier{}, time.Second, zap.New(core))

	a.Send(Message{SessionID: "CA1"})
	a.Wait()

	entries := logs.FilterMessage("notification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestAsync_Delivers(t *testing.T) {
	api := &fakeSNS{}
	a := NewAsync(NewSNSNotifier(api), time.Second, zap.NewNop())
	a.Send(Message{SessionID: "CA1", Caller: "+15551234567", DashboardURL: "u"})
	a.Wait()
	assert.Len(t, api.inputs, 1)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))
	require.NoError(t, n.Notify(context.Background(), Message{SessionID: "CA1", DashboardURL: "u"}))
	assert.Equal(t, 1, logs.FilterMessage("dashboard link ready").Len())
}

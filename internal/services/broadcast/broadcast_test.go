package broadcast

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/channelactions-tgbot-go/internal/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type staticAudience struct {
	ids   []int64
	total int64
	err   error
}

func (a staticAudience) CountUsers(ctx context.Context) (int64, error) {
	if a.err != nil {
		return 0, a.err
	}
	if a.total != 0 {
		return a.total, nil
	}
	return int64(len(a.ids)), nil
}

func (a staticAudience) UserIDs(ctx context.Context) ([]int64, error) {
	return a.ids, a.err
}

type mockSender struct {
	mu      sync.Mutex
	fail    map[int64]bool
	sent    []int64
	markups []*tgbotapi.InlineKeyboardMarkup
	block   chan struct{}
}

func (s *mockSender) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[toChatID] {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	s.sent = append(s.sent, toChatID)
	s.markups = append(s.markups, markup)
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newEngine(audience Audience, sender Sender) *Engine {
	cfg := &config.BroadcastConfig{ProgressEvery: 100}
	return NewEngine(cfg, audience, sender, middleware.NewMetrics(), testLogger())
}

func userRange(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestRunCountsSentAndBlocked(t *testing.T) {
	sender := &mockSender{fail: map[int64]bool{2: true}}
	engine := newEngine(staticAudience{ids: []int64{1, 2, 3}}, sender)

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Join", "https://t.me/x")),
	)
	report, err := engine.Run(context.Background(), Request{SourceChatID: 99, MessageID: 7, ReplyMarkup: &markup}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalUsers != 3 || report.Sent != 2 || report.Blocked != 1 || report.UnknownFailures() != 0 {
		t.Fatalf("report = %+v", report)
	}
	if report.ID == "" || report.FinishedAt.Before(report.StartedAt) {
		t.Fatalf("report metadata = %+v", report)
	}
	for _, m := range sender.markups {
		if m != &markup {
			t.Fatal("inline keyboard must be preserved on every copy")
		}
	}
}

func TestRunProgressEveryHundred(t *testing.T) {
	engine := newEngine(staticAudience{ids: userRange(250)}, &mockSender{})

	var calls []Report
	progress := func(ctx context.Context, r Report) error {
		calls = append(calls, r)
		return errors.New("message to edit not found")
	}

	report, err := engine.Run(context.Background(), Request{SourceChatID: 1, MessageID: 1}, progress)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 {
		t.Fatalf("progress calls = %d, want 2", len(calls))
	}
	if calls[0].Sent != 100 || calls[1].Sent != 200 {
		t.Fatalf("progress snapshots = %+v", calls)
	}
	if report.Sent != 250 {
		t.Fatalf("Sent = %d, want 250", report.Sent)
	}
}

func TestRunUnknownFailuresFromSnapshotDrift(t *testing.T) {
	engine := newEngine(staticAudience{ids: []int64{1, 2}, total: 3}, &mockSender{})

	report, err := engine.Run(context.Background(), Request{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.UnknownFailures() != 1 {
		t.Fatalf("UnknownFailures = %d, want 1", report.UnknownFailures())
	}
}

func TestRunAudienceError(t *testing.T) {
	engine := newEngine(staticAudience{err: errors.New("redis down")}, &mockSender{})
	if _, err := engine.Run(context.Background(), Request{}, nil); err == nil {
		t.Fatal("expected error")
	}
	if engine.Running() {
		t.Fatal("engine must be released after a failed run")
	}
}

func TestRunRejectsConcurrentBroadcast(t *testing.T) {
	sender := &mockSender{block: make(chan struct{})}
	engine := newEngine(staticAudience{ids: []int64{1}}, sender)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Run(context.Background(), Request{}, nil)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !engine.Running() {
		if time.Now().After(deadline) {
			t.Fatal("first run did not start")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := engine.Run(context.Background(), Request{}, nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}

	close(sender.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := &config.BroadcastConfig{ProgressEvery: 100, RatePerSecond: 1}
	engine := NewEngine(cfg, staticAudience{ids: userRange(10)}, &mockSender{}, middleware.NewMetrics(), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := engine.Run(ctx, Request{}, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if report.Sent >= 10 {
		t.Fatalf("Sent = %d, run should have been cut short", report.Sent)
	}
}

package conversation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type recordingWriter struct {
	templates map[int64]string
	err       error
}

func (w *recordingWriter) SetWelcomeTemplate(ctx context.Context, chatID int64, text string) error {
	if w.err != nil {
		return w.err
	}
	if w.templates == nil {
		w.templates = map[int64]string{}
	}
	w.templates[chatID] = text
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSubmitSavesAndEnds(t *testing.T) {
	writer := &recordingWriter{}
	m := NewManager(writer, time.Minute, testLogger())

	m.Begin(1, -100)
	if m.State(1) != StateAwaitingWelcomeText {
		t.Fatalf("state = %v", m.State(1))
	}

	res, err := m.Submit(context.Background(), 1, "Hello {name}")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ResultSaved || res.ChatID != -100 || res.Text != "Hello {name}" {
		t.Fatalf("result = %+v", res)
	}
	if writer.templates[-100] != "Hello {name}" {
		t.Fatalf("templates = %v", writer.templates)
	}
	if m.State(1) != StateIdle {
		t.Fatalf("state after submit = %v", m.State(1))
	}
}

func TestSubmitEmptyTextDoesNotWrite(t *testing.T) {
	writer := &recordingWriter{}
	m := NewManager(writer, time.Minute, testLogger())

	m.Begin(1, -100)
	res, err := m.Submit(context.Background(), 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ResultEmpty || res.ChatID != -100 {
		t.Fatalf("result = %+v", res)
	}
	if len(writer.templates) != 0 {
		t.Fatalf("unexpected write: %v", writer.templates)
	}
	if m.State(1) != StateIdle {
		t.Fatal("session must end after a non-text answer")
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	m := NewManager(&recordingWriter{}, time.Minute, testLogger())
	res, err := m.Submit(context.Background(), 1, "hi")
	if err != nil || res.Kind != ResultNone {
		t.Fatalf("Submit = %+v, %v", res, err)
	}
}

func TestSubmitWriteFailureEndsSession(t *testing.T) {
	writer := &recordingWriter{err: errors.New("down")}
	m := NewManager(writer, time.Minute, testLogger())

	m.Begin(1, -100)
	if _, err := m.Submit(context.Background(), 1, "text"); err == nil {
		t.Fatal("expected write error")
	}
	if m.State(1) != StateIdle {
		t.Fatal("session must end on failure")
	}
}

func TestCancel(t *testing.T) {
	writer := &recordingWriter{}
	m := NewManager(writer, time.Minute, testLogger())

	if m.Cancel(1) {
		t.Fatal("nothing to cancel yet")
	}
	m.Begin(1, -100)
	if !m.Cancel(1) {
		t.Fatal("expected an open session to be cancelled")
	}
	if m.State(1) != StateIdle || len(writer.templates) != 0 {
		t.Fatal("cancel must not write and must end the session")
	}
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	writer := &recordingWriter{}
	m := NewManager(writer, time.Minute, testLogger())

	m.Begin(1, -100)
	m.Begin(2, -200)

	if _, err := m.Submit(context.Background(), 2, "second"); err != nil {
		t.Fatal(err)
	}
	session, ok := m.Pending(1)
	if !ok || session.TargetChatID != -100 {
		t.Fatalf("user 1 session = %+v, %v", session, ok)
	}
	if writer.templates[-200] != "second" || writer.templates[-100] != "" {
		t.Fatalf("templates = %v", writer.templates)
	}
}

func TestBeginReplacesPreviousTarget(t *testing.T) {
	m := NewManager(&recordingWriter{}, time.Minute, testLogger())
	m.Begin(1, -100)
	m.Begin(1, -200)

	session, _ := m.Pending(1)
	if session.TargetChatID != -200 {
		t.Fatalf("target = %d, want -200", session.TargetChatID)
	}
}

func TestSessionExpires(t *testing.T) {
	m := NewManager(&recordingWriter{}, 20*time.Millisecond, testLogger())
	m.Begin(1, -100)

	time.Sleep(50 * time.Millisecond)
	if m.State(1) != StateIdle {
		t.Fatal("session should have expired")
	}
}

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingLogger struct {
	msgs   []string
	fields [][]Field
}

func (r *recordingLogger) record(msg string, fields []Field) {
	r.msgs = append(r.msgs, msg)
	r.fields = append(r.fields, fields)
}

func (r *recordingLogger) Debug(msg string, fields ...Field) { r.record(msg, fields) }
func (r *recordingLogger) Info(msg string, fields ...Field)  { r.record(msg, fields) }
func (r *recordingLogger) Warn(msg string, fields ...Field)  { r.record(msg, fields) }
func (r *recordingLogger) Error(msg string, fields ...Field) { r.record(msg, fields) }

func TestWith_PrependsFields(t *testing.T) {
	base := &recordingLogger{}
	l := With(With(base, String("component", "registry")), String("attempt", "a1"))

	l.Info("hello", Int("n", 1))

	if len(base.fields) != 1 {
		t.Fatalf("got %d entries, want 1", len(base.fields))
	}
	got := base.fields[0]
	wantKeys := []string{"component", "attempt", "n"}
	if len(got) != len(wantKeys) {
		t.Fatalf("got %d fields, want %d", len(got), len(wantKeys))
	}
	for i, k := range wantKeys {
		if got[i].Key != k {
			t.Errorf("field %d key = %s, want %s", i, got[i].Key, k)
		}
	}
}

func TestWith_NoFieldsReturnsSameLogger(t *testing.T) {
	base := &recordingLogger{}
	if With(base) != Logger(base) {
		t.Error("With() without fields should return the original logger")
	}
}

func TestOrNoop(t *testing.T) {
	if OrNoop(nil) == nil {
		t.Fatal("OrNoop(nil) returned nil")
	}
	base := &recordingLogger{}
	if OrNoop(base) != Logger(base) {
		t.Error("OrNoop should keep a non-nil logger")
	}
}

func TestZerologAdapter_WritesTypedFields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf))

	adapter.Warn("reconnect scheduled",
		String("state", "Reconnecting"),
		Int("failures", 3),
		Duration("delay", 2*time.Second),
		Bool("auth", false),
		Err(errors.New("boom")),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["message"] != "reconnect scheduled" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["state"] != "Reconnecting" {
		t.Errorf("state = %v", entry["state"])
	}
	if entry["failures"] != float64(3) {
		t.Errorf("failures = %v", entry["failures"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
}

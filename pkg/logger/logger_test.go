package logger

import (
	"fmt"
	"testing"
)

type recorder struct {
	lines []string
}

func (r *recorder) record(level, message string, keyvals ...any) {
	r.lines = append(r.lines, fmt.Sprintf("%s %s %v", level, message, keyvals))
}

func (r *recorder) Log(m string, kv ...any)   { r.record("log", m, kv...) }
func (r *recorder) Debug(m string, kv ...any) { r.record("debug", m, kv...) }
func (r *recorder) Info(m string, kv ...any)  { r.record("info", m, kv...) }
func (r *recorder) Warn(m string, kv ...any)  { r.record("warn", m, kv...) }
func (r *recorder) Error(m string, kv ...any) { r.record("error", m, kv...) }
func (r *recorder) Fatal(m string, kv ...any) { r.record("fatal", m, kv...) }

func TestLogger_DispatchesToAllInstances(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	defer Reset()

	Info("hello", "k", 1)
	Log("plain", "k", 2)

	want := []string{"info hello [k 1]", "log plain [k 2]"}
	for _, r := range []*recorder{a, b} {
		if len(r.lines) != len(want) {
			t.Fatalf("got %d lines, want %d", len(r.lines), len(want))
		}
		for i := range want {
			if r.lines[i] != want[i] {
				t.Fatalf("line %d got = %q, want %q", i, r.lines[i], want[i])
			}
		}
	}
}

func TestLogger_NoopBeforeInit(t *testing.T) {
	Reset()
	// must not panic
	Info("ignored")
	Error("ignored", "err", nil)
}

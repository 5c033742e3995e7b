package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestDisplay_Stages(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf, 4)

	d.Stage("ignored")
	if buf.Len() != 0 {
		t.Fatalf("Stage() before Start() wrote %q", buf.String())
	}

	d.Start("coverage")
	d.Stage("extract")
	d.Stage("rename")
	d.Stage("merge")

	if got := d.Done(); got != 2 {
		t.Errorf("Done() = %d, want 2", got)
	}
	if !strings.Contains(buf.String(), " 50% | merge") {
		t.Errorf("output missing 50%% merge line: %q", buf.String())
	}

	d.Stop(true)
	if got := d.Done(); got != 4 {
		t.Errorf("Done() after Stop(true) = %d, want 4", got)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Stop() should end the line")
	}

	n := buf.Len()
	d.Stage("late")
	d.Stop(true)
	if buf.Len() != n {
		t.Error("display wrote after Stop()")
	}
}

func TestDisplay_StopFailed(t *testing.T) {
	var buf bytes.Buffer
	d := New(&buf, 3)
	d.Start("coverage")
	d.Stage("extract")
	d.Stop(false)

	if !strings.Contains(buf.String(), "failed") {
		t.Errorf("output = %q, want failed stage", buf.String())
	}
	if got := d.Done(); got != 0 {
		t.Errorf("Done() = %d, want 0", got)
	}
}

func TestNew_ClampsTotal(t *testing.T) {
	d := New(&bytes.Buffer{}, 0)
	d.Start("x")
	d.Stage("a")
	d.Stage("b")
	if got := d.Done(); got != 1 {
		t.Errorf("Done() = %d, want 1", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

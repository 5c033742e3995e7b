package scanner

import (
	"errors"
	"testing"
)

func TestQuotedString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRest  string
		wantValue string
		wantErr   bool
	}{
		{
			name:      "simple",
			input:     `"unlock": &Command{`,
			wantRest:  `: &Command{`,
			wantValue: "unlock",
		},
		{
			name:      "empty string",
			input:     `"" tail`,
			wantRest:  ` tail`,
			wantValue: "",
		},
		{
			name:      "escaped quote",
			input:     `"say \"hi\"",`,
			wantRest:  `,`,
			wantValue: `say \"hi\"`,
		},
		{
			name:    "no opening quote",
			input:   `unlock"`,
			wantErr: true,
		},
		{
			name:    "unterminated",
			input:   `"unlock`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, value, err := QuotedString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QuotedString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrNoMatch) {
					t.Errorf("error %v should wrap ErrNoMatch", err)
				}
				if rest != tt.input {
					t.Errorf("rest = %q, input must be left untouched on failure", rest)
				}
				return
			}
			if value != tt.wantValue {
				t.Errorf("value = %q, want %q", value, tt.wantValue)
			}
			if rest != tt.wantRest {
				t.Errorf("rest = %q, want %q", rest, tt.wantRest)
			}
		})
	}
}

func TestSkipWhitespace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"abc", "abc"},
		{" \t\n\r\n  help:", "help:"},
		{"\t\t", ""},
	}

	for _, tt := range tests {
		if got := SkipWhitespace(tt.input); got != tt.want {
			t.Errorf("SkipWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestConsumeLine(t *testing.T) {
	rest, line, err := ConsumeLine("first line\nsecond\n")
	if err != nil {
		t.Fatalf("ConsumeLine() error = %v", err)
	}
	if line != "first line" {
		t.Errorf("line = %q, want %q", line, "first line")
	}
	if rest != "second\n" {
		t.Errorf("rest = %q, want %q", rest, "second\n")
	}

	_, line, err = ConsumeLine("crlf\r\nnext")
	if err != nil {
		t.Fatalf("ConsumeLine() error = %v", err)
	}
	if line != "crlf" {
		t.Errorf("line = %q, want %q", line, "crlf")
	}

	if _, _, err := ConsumeLine("no newline"); err == nil {
		t.Error("ConsumeLine() should fail without a newline")
	}
}

func TestTagAndTakeUntil(t *testing.T) {
	rest, err := Tag("help: \"x\"", "help:")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	if rest != ` "x"` {
		t.Errorf("rest = %q", rest)
	}

	if _, err := Tag("args:", "help:"); err == nil {
		t.Error("Tag() should fail on mismatch")
	}

	rest, taken, err := TakeUntil("prefix MARK suffix", "MARK")
	if err != nil {
		t.Fatalf("TakeUntil() error = %v", err)
	}
	if taken != "prefix " || rest != "MARK suffix" {
		t.Errorf("TakeUntil() = (%q, %q)", rest, taken)
	}

	if _, _, err := TakeUntil("nothing here", "MARK"); err == nil {
		t.Error("TakeUntil() should fail when the marker is missing")
	}
}

func TestTakeWhile1(t *testing.T) {
	isLower := func(c byte) bool { return c >= 'a' && c <= 'z' }

	rest, taken, err := TakeWhile1("abc123", isLower)
	if err != nil {
		t.Fatalf("TakeWhile1() error = %v", err)
	}
	if taken != "abc" || rest != "123" {
		t.Errorf("TakeWhile1() = (%q, %q)", rest, taken)
	}

	if _, _, err := TakeWhile1("123", isLower); err == nil {
		t.Error("TakeWhile1() should require at least one byte")
	}
}

func TestBool(t *testing.T) {
	rest, v, err := Bool("true,")
	if err != nil || !v || rest != "," {
		t.Errorf("Bool(true,) = (%q, %v, %v)", rest, v, err)
	}
	rest, v, err = Bool("false,")
	if err != nil || v || rest != "," {
		t.Errorf("Bool(false,) = (%q, %v, %v)", rest, v, err)
	}
	if _, _, err := Bool("maybe"); err == nil {
		t.Error("Bool() should reject non-boolean input")
	}
}

func TestSkipBalanced(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		depth    int
		wantRest string
		wantErr  bool
	}{
		{
			name:     "flat",
			input:    "a, b },rest",
			depth:    1,
			wantRest: ",rest",
		},
		{
			name:     "nested",
			input:    "handler: func() error {\n\treturn nil\n},\n},tail",
			depth:    1,
			wantRest: ",tail",
		},
		{
			name:     "brace in string",
			input:    "x := \"}\"\n}, ok",
			depth:    1,
			wantRest: ", ok",
		},
		{
			name:     "brace in rune and raw string",
			input:    "c := '{'; s := `}}`\n}!",
			depth:    1,
			wantRest: "!",
		},
		{
			name:     "brace in comment",
			input:    "// closing } here\n}.",
			depth:    1,
			wantRest: ".",
		},
		{
			name:    "never closes",
			input:   "{ { }",
			depth:   1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, err := SkipBalanced(tt.input, tt.depth)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SkipBalanced() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && rest != tt.wantRest {
				t.Errorf("rest = %q, want %q", rest, tt.wantRest)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("short"); got != "short" {
		t.Errorf("Snippet(short) = %q", got)
	}
	long := "0123456789012345678901234567890"
	if got := Snippet(long); got != long[:20]+"..." {
		t.Errorf("Snippet(long) = %q", got)
	}
}

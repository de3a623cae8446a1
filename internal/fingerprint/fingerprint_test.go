package fingerprint

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t\r ", ""},
		{"line breaks", "hello\r\nworld\n\nagain", "hello world again"},
		{"irregular spaces", "  a   b\t\tc  ", "a b c"},
		{"nbsp", "a\u00a0\u00a0b", "a b"},
		{"zero width", "a\u200bb", "a b"},
		{"already normal", "a b c", "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"", "x", "  multi \n line text  ", "ا ب  ت\nث"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
		if Sum(Normalize(in)) != Sum(Normalize(Normalize(in))) {
			t.Errorf("fingerprint changed under repeated normalization for %q", in)
		}
	}
}

func TestSum_FormattingInsensitive(t *testing.T) {
	a := Sum("good morning\nfriends")
	b := Sum("  good   morning friends \r\n")
	if a != b {
		t.Errorf("fingerprints differ: %q vs %q", a, b)
	}
	if c := Sum("good morning enemies"); c == a {
		t.Errorf("different text produced the same fingerprint %q", c)
	}
}

func TestSum_StableValue(t *testing.T) {
	// md5("hello world") = 5eb63bbbe01eeed093cb22bb8f5acdc3
	if got := Sum("hello   world"); got != "5eb63bbbe01e" {
		t.Errorf("Sum = %q, want %q", got, "5eb63bbbe01e")
	}
	if got := len(Sum("anything")); got != Length {
		t.Errorf("len = %d, want %d", got, Length)
	}
}

func TestSum_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n "} {
		if got := Sum(in); got != "" {
			t.Errorf("Sum(%q) = %q, want empty", in, got)
		}
	}
}

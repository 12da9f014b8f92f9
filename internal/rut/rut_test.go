package rut

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9.647.123-8", "96471238"},
		{"9647123-8", "96471238"},
		{"9647123-8 ", "96471238"},
		{" 9 647 123 - 8", "96471238"},
		{"12.345.678-k", "12345678K"},
		{"12345678K", "12345678K"},
		{"", ""},
		{"--", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeEquivalentForms(t *testing.T) {
	a, b, c := Normalize("9.647.123-8"), Normalize("9647123-8"), Normalize("9647123-8 ")
	if a != b || b != c {
		t.Fatalf("expected identical canonical forms, got %q %q %q", a, b, c)
	}
}

func TestLooksLike(t *testing.T) {
	for _, s := range []string{"9.647.123-8", "60.511.030-4", "12345678-K"} {
		if !LooksLike(s) {
			t.Errorf("LooksLike(%q) = false", s)
		}
	}
	for _, s := range []string{"Juan Pérez", "123", "", "550e8400-e29b-41d4-a716-446655440000"} {
		if LooksLike(s) {
			t.Errorf("LooksLike(%q) = true", s)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("9.647.123-8") {
		t.Error("9.647.123-8 should be valid")
	}
	if !Valid("60.511.030-4") {
		t.Error("60.511.030-4 should be valid")
	}
	if Valid("9.647.123-7") {
		t.Error("9.647.123-7 should be invalid")
	}
}

func TestCheckDigitK(t *testing.T) {
	// 10.000.013: 3*2+1*3+0*4+0*5+0*6+0*7+0*2+1*3 = 12; 11-12%11 = 10 -> K
	got, ok := CheckDigit("10000013")
	if !ok || got != 'K' {
		t.Fatalf("CheckDigit = %q, %v; want K", got, ok)
	}
}

func TestFormat(t *testing.T) {
	if got := Format("96471238"); got != "9.647.123-8" {
		t.Errorf("Format = %q", got)
	}
	if got := Format("60511030" + "4"); got != "60.511.030-4" {
		t.Errorf("Format = %q", got)
	}
	if got := Format("abc"); got != "abc" {
		t.Errorf("Format passthrough = %q", got)
	}
}

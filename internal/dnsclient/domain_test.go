package dnsclient

import "testing"

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Example.COM", "example.com"},
		{"trailing_dot", "example.com.", "example.com"},
		{"whitespace", "  example.com ", "example.com"},
		{"zero_width_space", "exam\u200Bple.com", "example.com"},
		{"zero_width_joiner", "exam\u200Dple.com", "example.com"},
		{"bom", "\uFEFFexample.com", "example.com"},
		{"unicode_kept", "bücher.de", "bücher.de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDomain(tt.input); got != tt.want {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDomainIdempotent(t *testing.T) {
	inputs := []string{"Example.COM.", "exam\u200Bple.com", "bücher.de"}
	for _, in := range inputs {
		once := NormalizeDomain(in)
		twice := NormalizeDomain(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestDomainToASCII(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"example.com", "example.com", false},
		{"bücher.de", "xn--bcher-kva.de", false},
		{"example.com.", "example.com", false},
	}

	for _, tt := range tests {
		got, err := DomainToASCII(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("DomainToASCII(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("DomainToASCII(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DomainToASCII(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateDomain(t *testing.T) {
	valid := []string{
		"example.com",
		"sub.example.com",
		"bücher.de",
		"a.io",
		"xn--bcher-kva.de",
	}
	invalid := []string{
		"",
		"example",
		".example.com",
		"example..com",
		"-example.com",
		"example-.com",
		"example.c0m",
		"a.b.c.d.e.f.g.h.i.j.k.example.com",
		string(make([]byte, 260)),
	}

	for _, d := range valid {
		if !ValidateDomain(d) {
			t.Errorf("ValidateDomain(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if ValidateDomain(d) {
			t.Errorf("ValidateDomain(%q) = true, want false", d)
		}
	}
}

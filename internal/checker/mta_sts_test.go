package checker

import (
	"strings"
	"testing"
)

func TestFilterSTSRecords(t *testing.T) {
	valid := filterSTSRecords([]string{
		"v=STSv1; id=20240101000000Z",
		"v=spf1 -all",
		"V=stsv1; id=abc",
	})
	if len(valid) != 2 {
		t.Errorf("expected 2 valid records, got %v", valid)
	}
}

func TestParseMTASTSPolicy(t *testing.T) {
	policy := "version: STSv1\r\nmode: enforce\r\nmx: mail.example.com\r\nmx: *.example.net\r\nmax_age: 604800\r\n"

	p := parseMTASTSPolicy(policy)
	if !p.hasVersion {
		t.Error("hasVersion should be true for STSv1")
	}
	if p.mode != "enforce" {
		t.Errorf("mode = %s, want enforce", p.mode)
	}
	if p.maxAge != 604800 {
		t.Errorf("maxAge = %d, want 604800", p.maxAge)
	}
	if len(p.mx) != 2 || p.mx[0] != "mail.example.com" {
		t.Errorf("mx = %v", p.mx)
	}
}

func TestParseMTASTSPolicyMissingVersion(t *testing.T) {
	p := parseMTASTSPolicy("mode: testing\nmax_age: 86400\n")
	if p.hasVersion {
		t.Error("hasVersion should be false without a version line")
	}
	if p.mode != "testing" {
		t.Errorf("mode = %s, want testing", p.mode)
	}
}

func TestMTASTSVerdict(t *testing.T) {
	tests := []struct {
		name       string
		policy     mtaSTSPolicy
		wantStatus string
	}{
		{"fetch_failed", mtaSTSPolicy{fetchErr: "HTTP 404"}, "warning"},
		{"dns_only", mtaSTSPolicy{}, "success"},
		{"enforce", mtaSTSPolicy{fetched: true, hasVersion: true, mode: "enforce", mx: []string{"mx.example.com"}}, "success"},
		{"testing", mtaSTSPolicy{fetched: true, hasVersion: true, mode: "testing"}, "warning"},
		{"mode_none", mtaSTSPolicy{fetched: true, hasVersion: true, mode: "none"}, "warning"},
		{"no_version", mtaSTSPolicy{fetched: true, mode: "enforce"}, "warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, _ := mtaSTSVerdict(tt.policy)
			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
		})
	}
}

func TestMTASTSVerdictEnforceMessage(t *testing.T) {
	_, message, _ := mtaSTSVerdict(mtaSTSPolicy{
		fetched: true, hasVersion: true, mode: "enforce",
		mx: []string{"a.example.com", "b.example.com"},
	})
	if !strings.Contains(message, "2 mail server(s)") {
		t.Errorf("message should mention server count: %s", message)
	}
}

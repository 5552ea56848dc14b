package templates

import (
	"strings"
	"testing"
)

func TestLinkRFC(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"plain_rfc",
			"See RFC 5322 for details",
			`<a href="https://datatracker.ietf.org/doc/html/rfc5322">RFC 5322</a>`,
		},
		{
			"parenthesized",
			"(RFC 7489)",
			`(<a href="https://datatracker.ietf.org/doc/html/rfc7489">RFC 7489</a>)`,
		},
		{
			"no_space",
			"RFC9116 section 2.1.2.",
			`<a href="https://datatracker.ietf.org/doc/html/rfc9116#section-2.1.2">RFC9116 section 2.1.2</a>`,
		},
		{
			"appendix_section",
			"RFC 7489, § A.1",
			`<a href="https://datatracker.ietf.org/doc/html/rfc7489#appendix-a-1">RFC 7489, § A.1</a>`,
		},
		{
			"appendix_letter_only",
			"RFC 7208 § A",
			`<a href="https://datatracker.ietf.org/doc/html/rfc7208#appendix-a">RFC 7208 § A</a>`,
		},
		{
			"draft_with_section",
			"draft-ietf-dmarc-base-11 § 4.2",
			`<a href="https://datatracker.ietf.org/doc/html/draft-ietf-dmarc-base-11#section-4.2">draft-ietf-dmarc-base-11 § 4.2</a>`,
		},
		{
			"draft_plain",
			"per draft-kucherawy-dkim-crypto-02,",
			`<a href="https://datatracker.ietf.org/doc/html/draft-kucherawy-dkim-crypto-02">draft-kucherawy-dkim-crypto-02</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(LinkRFC(tt.input))
			if !strings.Contains(got, tt.want) {
				t.Errorf("LinkRFC(%q)\n got:  %s\n want substring: %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestLinkRFCEscapesInput(t *testing.T) {
	got := string(LinkRFC(`<script>alert("x")</script> RFC 5322`))
	if strings.Contains(got, "<script>") {
		t.Errorf("input not escaped: %s", got)
	}
	if !strings.Contains(got, "rfc5322") {
		t.Errorf("citation not linked: %s", got)
	}
}

func TestLinkRFCLeavesPlainTextAlone(t *testing.T) {
	for _, input := range []string{
		"no citations here",
		"RFCs in general",
		"wordRFC 123 glued to a word",
	} {
		got := string(LinkRFC(input))
		if strings.Contains(got, "<a ") {
			t.Errorf("LinkRFC(%q) should not link anything, got %s", input, got)
		}
	}
}

func TestSectionAnchor(t *testing.T) {
	tests := []struct {
		section string
		want    string
	}{
		{"4.1.2", "section-4.1.2"},
		{"A", "appendix-a"},
		{"A.1.2", "appendix-a-1-2"},
		{"B.3", "appendix-b-3"},
		{"2.1.2.", "section-2.1.2"},
		{"weird one", "section-weird-one"},
	}

	for _, tt := range tests {
		if got := sectionAnchor(tt.section); got != tt.want {
			t.Errorf("sectionAnchor(%q) = %q, want %q", tt.section, got, tt.want)
		}
	}
}

package templates

import (
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
)

// citationRe matches "RFC 5322", "RFC9116 section 2.1.2", "RFC 7489, § A.1"
// and draft names like "draft-ietf-dmarc-base-11 § 4.2". The surrounding
// boundary characters are checked separately since RE2 has no lookarounds.
var citationRe = regexp.MustCompile(
	`(?i)(?:RFC\s*(\d+)|(draft-[A-Za-z0-9][A-Za-z0-9-]*))` +
		`(?:\s*,?\s*(?:§§?|section)\s*` +
		`([^\s\]\),;:.]+(?:\.[^\s\]\),;:.]+)*(?:-[^\s\]\),;:.]+)*))?`)

var (
	numericSectionRe  = regexp.MustCompile(`^\d+(?:\.\d+)*$`)
	appendixSectionRe = regexp.MustCompile(`^([A-Za-z])(?:\.(\d+(?:\.\d+)*))?$`)
	nonAlnumRe        = regexp.MustCompile(`[^A-Za-z0-9]+`)
	trailingPunctRe   = regexp.MustCompile(`[).,;: ]+$`)
	collapseWSRe      = regexp.MustCompile(`\s+`)
)

// sectionAnchor maps a section string to datatracker's HTML fragment:
// "4.1.2" -> section-4.1.2, "A" -> appendix-a, "A.1.2" -> appendix-a-1-2,
// anything else -> section-<slug>.
func sectionAnchor(section string) string {
	s := trailingPunctRe.ReplaceAllString(strings.TrimSpace(section), "")

	if numericSectionRe.MatchString(s) {
		return "section-" + s
	}

	if m := appendixSectionRe.FindStringSubmatch(s); m != nil {
		anchor := "appendix-" + strings.ToLower(m[1])
		if m[2] != "" {
			anchor += "-" + strings.ReplaceAll(m[2], ".", "-")
		}
		return anchor
	}

	slug := strings.ToLower(strings.Trim(nonAlnumRe.ReplaceAllString(s, "-"), "-"))
	return "section-" + slug
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z')
}

func isTerminatorByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', ']', ')', ',', ';', ':', '.':
		return true
	}
	return false
}

// LinkRFC turns RFC and draft citations in plain text into datatracker
// links. The input is escaped first, so the result is safe to mark as
// trusted HTML.
func LinkRFC(value string) template.HTML {
	escaped := html.EscapeString(value)

	var out strings.Builder
	last := 0
	for _, loc := range citationRe.FindAllStringSubmatchIndex(escaped, -1) {
		start, end := loc[0], loc[1]

		// Emulate the word-boundary and terminator lookarounds.
		if start > 0 && isWordByte(escaped[start-1]) {
			continue
		}
		if end < len(escaped) && !isTerminatorByte(escaped[end]) {
			continue
		}

		visible := escaped[start:end]

		var base string
		if loc[2] >= 0 {
			base = "https://datatracker.ietf.org/doc/html/rfc" + escaped[loc[2]:loc[3]]
		} else {
			base = "https://datatracker.ietf.org/doc/html/" + strings.ToLower(escaped[loc[4]:loc[5]])
		}

		fragment := ""
		if loc[6] >= 0 {
			section := collapseWSRe.ReplaceAllString(escaped[loc[6]:loc[7]], " ")
			section = trailingPunctRe.ReplaceAllString(section, "")
			fragment = "#" + sectionAnchor(section)
		}

		out.WriteString(escaped[last:start])
		out.WriteString(fmt.Sprintf(`<a href="%s%s">%s</a>`, base, fragment, visible))
		last = end
	}
	out.WriteString(escaped[last:])

	return template.HTML(out.String())
}

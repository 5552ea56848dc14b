package dnsclient

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

var (
	labelRegex    = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	tldRegex      = regexp.MustCompile(`^[a-zA-Z]{2,}$`)
	asciiRegex    = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)
	// ZWSP, ZWNJ, ZWJ, BOM
	zeroWidthRe = regexp.MustCompile("[\u200B-\u200D\uFEFF]")
)

// NormalizeDomain makes user input safe to route and query: NFC form,
// zero-width characters stripped, lowercased, trailing dot removed.
func NormalizeDomain(domain string) string {
	domain = norm.NFC.String(strings.TrimSpace(domain))
	domain = zeroWidthRe.ReplaceAllString(domain, "")
	domain = strings.TrimRight(domain, ".")
	return strings.ToLower(domain)
}

// DomainToASCII converts an internationalized name to its punycode form
// using non-transitional lookup mapping.
func DomainToASCII(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimRight(domain, ".")

	p := idna.New(idna.MapForLookup(), idna.Transitional(false))
	ascii, err := p.ToASCII(domain)
	if err != nil {
		// Accept plain ASCII names the profile rejects for cosmetic
		// reasons, as long as labels are structurally sound.
		if asciiRegex.MatchString(domain) {
			for _, label := range strings.Split(domain, ".") {
				if label == "" || len(label) > 63 || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
					return "", err
				}
			}
			return domain, nil
		}
		return "", err
	}
	return ascii, nil
}

const maxLabelDepth = 10

// ValidateDomain reports whether a normalized domain is checkable.
func ValidateDomain(domain string) bool {
	if domain == "" || len(domain) > 253 {
		return false
	}

	domain = strings.TrimSpace(domain)
	domain = strings.TrimRight(domain, ".")
	if domain == "" {
		return false
	}

	ascii, err := DomainToASCII(domain)
	if err != nil {
		return false
	}

	if strings.Contains(ascii, "..") || strings.HasPrefix(ascii, ".") || strings.HasPrefix(ascii, "-") {
		return false
	}

	labels := strings.Split(ascii, ".")
	if len(labels) < 2 || len(labels) > maxLabelDepth {
		return false
	}

	if !validateLabels(labels) {
		return false
	}

	return validateTLD(labels[len(labels)-1])
}

func validateLabels(labels []string) bool {
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		if !labelRegex.MatchString(label) {
			return false
		}
	}
	return true
}

func validateTLD(tld string) bool {
	return tldRegex.MatchString(tld) || strings.HasPrefix(tld, "xn--")
}

// FindParentZone walks up the label chain looking for the nearest zone
// with its own NS delegation.
func FindParentZone(c *Client, ctx context.Context, domain string) string {
	parts := strings.Split(domain, ".")
	for i := 1; i < len(parts)-1; i++ {
		candidate := strings.Join(parts[i:], ".")
		if len(c.QueryDNS(ctx, "NS", candidate)) > 0 {
			return candidate
		}
	}
	return ""
}

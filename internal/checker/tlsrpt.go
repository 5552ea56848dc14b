package checker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var tlsrptRUARe = regexp.MustCompile(`(?i)rua=([^;\s]+)`)

// AnalyzeTLSRPT checks the _smtp._tls TXT record (RFC 8460).
func (c *Checker) AnalyzeTLSRPT(ctx context.Context, domain string) map[string]any {
	records := c.DNS.QueryDNS(ctx, "TXT", fmt.Sprintf("_smtp._tls.%s", domain))

	if len(records) == 0 {
		return map[string]any{
			"status":  "warning",
			"message": "No TLS-RPT record found",
			"record":  nil,
			"rua":     nil,
		}
	}

	var validRecords []string
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(r), "v=tlsrptv1") {
			validRecords = append(validRecords, r)
		}
	}

	if len(validRecords) == 0 {
		return map[string]any{
			"status":  "warning",
			"message": "No valid TLS-RPT record found",
			"record":  nil,
			"rua":     nil,
		}
	}

	record := validRecords[0]
	var rua any
	if m := tlsrptRUARe.FindStringSubmatch(record); m != nil {
		rua = m[1]
	}

	return map[string]any{
		"status":  "success",
		"message": "TLS-RPT configured - receiving TLS delivery reports",
		"record":  record,
		"rua":     rua,
	}
}

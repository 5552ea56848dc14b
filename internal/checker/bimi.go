package checker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	bimiLogoRe = regexp.MustCompile(`(?i)l=([^;\s]+)`)
	bimiVMCRe  = regexp.MustCompile(`(?i)a=([^;\s]+)`)
)

func checkBIMILogoURL(logoURL string) (valid bool, issue string) {
	lower := strings.ToLower(logoURL)
	if !strings.HasPrefix(lower, "https://") {
		return false, "Logo URL must use HTTPS"
	}
	if !strings.HasSuffix(strings.SplitN(lower, "?", 2)[0], ".svg") {
		return false, "Logo must be an SVG image"
	}
	return true, ""
}

// AnalyzeBIMI checks the default._bimi TXT record and its logo/VMC URLs.
func (c *Checker) AnalyzeBIMI(ctx context.Context, domain string) map[string]any {
	records := c.DNS.QueryDNS(ctx, "TXT", fmt.Sprintf("default._bimi.%s", domain))

	baseResult := map[string]any{
		"status":     "warning",
		"message":    "No BIMI record found",
		"record":     nil,
		"logo_url":   nil,
		"vmc_url":    nil,
		"logo_valid": nil,
		"issues":     []string{},
	}

	if len(records) == 0 {
		return baseResult
	}

	var validRecords []string
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(r), "v=bimi1") {
			validRecords = append(validRecords, r)
		}
	}

	if len(validRecords) == 0 {
		baseResult["message"] = "No valid BIMI record found"
		return baseResult
	}

	record := validRecords[0]
	var logoURL, vmcURL *string
	if m := bimiLogoRe.FindStringSubmatch(record); m != nil {
		logoURL = &m[1]
	}
	if m := bimiVMCRe.FindStringSubmatch(record); m != nil {
		vmcURL = &m[1]
	}

	status := "success"
	var issues []string
	var messageParts []string
	var logoValid any

	switch {
	case logoURL == nil:
		status = "warning"
		messageParts = append(messageParts, "BIMI record found but missing logo URL")
	case vmcURL != nil:
		messageParts = append(messageParts, "BIMI configured with VMC")
	default:
		messageParts = append(messageParts, "BIMI configured (VMC recommended for Gmail)")
	}

	if logoURL != nil {
		valid, issue := checkBIMILogoURL(*logoURL)
		logoValid = valid
		if !valid {
			status = "warning"
			issues = append(issues, issue)
			messageParts = append(messageParts, fmt.Sprintf("- %s", issue))
		}
	}

	result := map[string]any{
		"status":     status,
		"message":    strings.Join(messageParts, " "),
		"record":     record,
		"logo_url":   derefStr(logoURL),
		"vmc_url":    derefStr(vmcURL),
		"logo_valid": logoValid,
		"issues":     issues,
	}
	ensureStringSlices(result, "issues")
	return result
}

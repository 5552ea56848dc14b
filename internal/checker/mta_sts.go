package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var mtaStsIDRe = regexp.MustCompile(`(?i)id=([^;\s]+)`)

type mtaSTSPolicy struct {
	fetched    bool
	raw        string
	version    string
	hasVersion bool
	mode       string
	maxAge     int
	mx         []string
	fetchErr   string
}

func filterSTSRecords(records []string) []string {
	var valid []string
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(r), "v=stsv1") {
			valid = append(valid, r)
		}
	}
	return valid
}

func parseMTASTSPolicy(policyText string) mtaSTSPolicy {
	p := mtaSTSPolicy{fetched: true, raw: policyText}
	for _, line := range strings.Split(policyText, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "version:"):
			p.version = strings.TrimSpace(line[8:])
			p.hasVersion = strings.EqualFold(p.version, "STSv1")
		case strings.HasPrefix(lower, "mode:"):
			p.mode = strings.TrimSpace(strings.ToLower(line[5:]))
		case strings.HasPrefix(lower, "max_age:"):
			if maxAge, err := strconv.Atoi(strings.TrimSpace(line[8:])); err == nil && maxAge > 0 {
				p.maxAge = maxAge
			}
		case strings.HasPrefix(lower, "mx:"):
			if mx := strings.TrimSpace(line[3:]); mx != "" {
				p.mx = append(p.mx, mx)
			}
		}
	}
	return p
}

func (c *Checker) fetchMTASTSPolicy(ctx context.Context, domain string) mtaSTSPolicy {
	policyURL := fmt.Sprintf("https://mta-sts.%s/.well-known/mta-sts.txt", domain)

	req, err := http.NewRequestWithContext(ctx, "GET", policyURL, nil)
	if err != nil {
		return mtaSTSPolicy{fetchErr: err.Error()}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return mtaSTSPolicy{fetchErr: classifyHTTPError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mtaSTSPolicy{fetchErr: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return mtaSTSPolicy{fetchErr: "Failed to read response"}
	}

	return parseMTASTSPolicy(string(body))
}

func mtaSTSVerdict(p mtaSTSPolicy) (status, message string, issues []string) {
	if !p.fetched {
		if p.fetchErr != "" {
			return "warning", "MTA-STS DNS record found but policy file inaccessible", nil
		}
		return "success", "MTA-STS record found", nil
	}

	if !p.hasVersion {
		issues = append(issues, "Policy file missing required 'version: STSv1' field (RFC 8461 §3.2)")
	}

	switch p.mode {
	case "enforce":
		status = "success"
		if len(p.mx) > 0 {
			message = fmt.Sprintf("MTA-STS enforced - TLS required for %d mail server(s)", len(p.mx))
		} else {
			message = "MTA-STS enforced - TLS required for mail delivery"
		}
	case "testing":
		status, message = "warning", "MTA-STS in testing mode - TLS failures reported but not enforced"
	case "none":
		status, message = "warning", "MTA-STS policy disabled (mode=none)"
	default:
		status, message = "success", "MTA-STS policy found"
	}

	if !p.hasVersion && status == "success" {
		status = "warning"
		message += " (missing version field in policy)"
	}

	return status, message, issues
}

// AnalyzeMTASTS checks the _mta-sts TXT record and fetches the policy
// file over HTTPS.
func (c *Checker) AnalyzeMTASTS(ctx context.Context, domain string) map[string]any {
	records := c.DNS.QueryDNS(ctx, "TXT", fmt.Sprintf("_mta-sts.%s", domain))

	baseResult := map[string]any{
		"status":         "warning",
		"message":        "No MTA-STS record found",
		"record":         nil,
		"dns_id":         nil,
		"policy":         nil,
		"policy_mode":    nil,
		"policy_max_age": nil,
		"policy_mx":      []string{},
		"policy_fetched": false,
		"policy_error":   nil,
		"policy_issues":  []string{},
	}

	if len(records) == 0 {
		return baseResult
	}

	validRecords := filterSTSRecords(records)
	if len(validRecords) == 0 {
		baseResult["message"] = "No valid MTA-STS record found"
		return baseResult
	}

	record := validRecords[0]
	var dnsID any
	if m := mtaStsIDRe.FindStringSubmatch(record); m != nil {
		dnsID = m[1]
	}

	policy := c.fetchMTASTSPolicy(ctx, domain)
	status, message, policyIssues := mtaSTSVerdict(policy)

	result := map[string]any{
		"status":         status,
		"message":        message,
		"record":         record,
		"dns_id":         dnsID,
		"policy":         nil,
		"policy_mode":    nil,
		"policy_max_age": nil,
		"policy_mx":      policy.mx,
		"policy_fetched": policy.fetched,
		"policy_error":   nil,
		"policy_issues":  policyIssues,
	}
	if policy.fetched {
		result["policy"] = policy.raw
		if policy.mode != "" {
			result["policy_mode"] = policy.mode
		}
		if policy.maxAge > 0 {
			result["policy_max_age"] = policy.maxAge
		}
	}
	if policy.fetchErr != "" {
		result["policy_error"] = policy.fetchErr
	}

	ensureStringSlices(result, "policy_mx", "policy_issues")
	return result
}

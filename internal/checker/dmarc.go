package checker

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	dmarcPolicyRe   = regexp.MustCompile(`(?i)\bp=(\w+)`)
	dmarcSPRe       = regexp.MustCompile(`(?i)\bsp=(\w+)`)
	dmarcPctRe      = regexp.MustCompile(`(?i)\bpct=(\d+)`)
	dmarcASPFRe     = regexp.MustCompile(`(?i)\baspf=([rs])`)
	dmarcADKIMRe    = regexp.MustCompile(`(?i)\badkim=([rs])`)
	dmarcRUARe      = regexp.MustCompile(`(?i)\brua=([^;\s]+)`)
	dmarcRUFRe      = regexp.MustCompile(`(?i)\bruf=([^;\s]+)`)
	dmarcNPRe       = regexp.MustCompile(`(?i)\bnp=(\w+)`)
	dmarcTRe        = regexp.MustCompile(`(?i)\bt=([yn])`)
	dmarcPSDRe      = regexp.MustCompile(`(?i)\bpsd=([yn])`)
	mailtoExtractRe = regexp.MustCompile(`(?i)mailto:([^,;\s]+)`)
)

type dmarcTags struct {
	policy          *string
	subdomainPolicy *string
	pct             int
	aspf            string
	adkim           string
	rua             *string
	ruf             *string
	npPolicy        *string
	tTesting        *string
	psdFlag         *string
}

func parseDMARCTags(record string) dmarcTags {
	tags := dmarcTags{pct: 100, aspf: "relaxed", adkim: "relaxed"}
	lower := strings.ToLower(record)

	if m := dmarcPolicyRe.FindStringSubmatch(lower); m != nil {
		tags.policy = &m[1]
	}
	if m := dmarcSPRe.FindStringSubmatch(lower); m != nil {
		tags.subdomainPolicy = &m[1]
	}
	if m := dmarcPctRe.FindStringSubmatch(lower); m != nil {
		if pct, err := strconv.Atoi(m[1]); err == nil {
			tags.pct = pct
		}
	}
	if m := dmarcASPFRe.FindStringSubmatch(lower); m != nil && m[1] == "s" {
		tags.aspf = "strict"
	}
	if m := dmarcADKIMRe.FindStringSubmatch(lower); m != nil && m[1] == "s" {
		tags.adkim = "strict"
	}
	if m := dmarcRUARe.FindStringSubmatch(record); m != nil {
		tags.rua = &m[1]
	}
	if m := dmarcRUFRe.FindStringSubmatch(record); m != nil {
		tags.ruf = &m[1]
	}
	if m := dmarcNPRe.FindStringSubmatch(lower); m != nil {
		tags.npPolicy = &m[1]
	}
	if m := dmarcTRe.FindStringSubmatch(lower); m != nil {
		tags.tTesting = &m[1]
	}
	if m := dmarcPSDRe.FindStringSubmatch(lower); m != nil {
		tags.psdFlag = &m[1]
	}
	return tags
}

// dmarcbisTags collects the DMARCbis tags present in the record.
func (t dmarcTags) dmarcbisTags() map[string]string {
	tags := map[string]string{}
	if t.npPolicy != nil {
		tags["np"] = *t.npPolicy
	}
	if t.tTesting != nil {
		tags["t"] = *t.tTesting
	}
	if t.psdFlag != nil {
		tags["psd"] = *t.psdFlag
	}
	return tags
}

func dmarcVerdict(tags dmarcTags) (status, message string, issues []string) {
	if tags.policy == nil {
		return "info", "DMARC record found but policy unclear", nil
	}

	switch *tags.policy {
	case "none":
		status = "warning"
		message = "DMARC in monitoring mode (p=none) - spoofed mail still delivered, no enforcement"
		issues = append(issues, "Policy p=none provides no protection - spoofed emails reach inboxes")
	case "reject":
		if tags.pct < 100 {
			status = "warning"
			message = fmt.Sprintf("DMARC reject but only %d%% enforced - partial protection", tags.pct)
			issues = append(issues, fmt.Sprintf("Only %d%% of mail subject to policy", tags.pct))
		} else {
			status = "success"
			message = "DMARC policy reject (100%) - excellent protection"
		}
	case "quarantine":
		if tags.pct < 100 {
			status = "warning"
			message = fmt.Sprintf("DMARC quarantine but only %d%% enforced - partial protection", tags.pct)
			issues = append(issues, fmt.Sprintf("Only %d%% of mail subject to policy", tags.pct))
		} else {
			status = "success"
			message = "DMARC policy quarantine (100%) - good protection"
		}
	default:
		status = "info"
		message = "DMARC record found but policy unclear"
	}

	if *tags.policy == "reject" || *tags.policy == "quarantine" {
		if tags.subdomainPolicy != nil && *tags.subdomainPolicy == "none" {
			issues = append(issues, fmt.Sprintf("Subdomains unprotected (sp=none while p=%s)", *tags.policy))
		}
		if tags.npPolicy == nil && tags.subdomainPolicy == nil {
			issues = append(issues, "No np= tag (DMARCbis) - non-existent subdomains inherit p= policy but adding np=reject provides explicit protection against subdomain spoofing")
		}
	}

	if tags.ruf != nil {
		issues = append(issues, "Forensic reports (ruf) configured - many providers ignore these")
	}

	return status, message, issues
}

// AnalyzeDMARC inspects _dmarc.<domain> TXT records.
func (c *Checker) AnalyzeDMARC(ctx context.Context, domain string) map[string]any {
	dmarcRecords := c.DNS.QueryDNS(ctx, "TXT", fmt.Sprintf("_dmarc.%s", domain))

	result := map[string]any{
		"status":           "error",
		"message":          "No DMARC record found",
		"records":          []string{},
		"valid_records":    []string{},
		"dmarc_like":       []string{},
		"policy":           nil,
		"subdomain_policy": nil,
		"pct":              100,
		"aspf":             "relaxed",
		"adkim":            "relaxed",
		"rua":              nil,
		"rua_domains":      []string{},
		"ruf":              nil,
		"np_policy":        nil,
		"t_testing":        nil,
		"psd_flag":         nil,
		"dmarcbis_tags":    map[string]string{},
		"issues":           []string{},
	}

	if len(dmarcRecords) == 0 {
		return result
	}

	var validDMARC, dmarcLike []string
	for _, record := range dmarcRecords {
		if record == "" {
			continue
		}
		lower := strings.ToLower(record)
		if strings.Contains(lower, "v=dmarc1") {
			validDMARC = append(validDMARC, record)
		} else if strings.Contains(lower, "dmarc") {
			dmarcLike = append(dmarcLike, record)
		}
	}

	result["records"] = dmarcRecords
	result["valid_records"] = validDMARC
	result["dmarc_like"] = dmarcLike

	switch {
	case len(validDMARC) == 0:
		result["message"] = "No valid DMARC record found"
	case len(validDMARC) > 1:
		result["status"] = "warning"
		result["message"] = "Multiple DMARC records found (there should be only one)"
		result["issues"] = []string{"Multiple DMARC records"}
	default:
		tags := parseDMARCTags(validDMARC[0])
		status, message, issues := dmarcVerdict(tags)

		result["status"] = status
		result["message"] = message
		result["policy"] = derefStr(tags.policy)
		result["subdomain_policy"] = derefStr(tags.subdomainPolicy)
		result["pct"] = tags.pct
		result["aspf"] = tags.aspf
		result["adkim"] = tags.adkim
		result["rua"] = derefStr(tags.rua)
		result["ruf"] = derefStr(tags.ruf)
		result["np_policy"] = derefStr(tags.npPolicy)
		result["t_testing"] = derefStr(tags.tTesting)
		result["psd_flag"] = derefStr(tags.psdFlag)
		result["dmarcbis_tags"] = tags.dmarcbisTags()
		result["issues"] = issues
		if tags.rua != nil {
			result["rua_domains"] = ExtractMailtoDomains(*tags.rua)
		}
	}

	ensureStringSlices(result, "valid_records", "dmarc_like", "issues", "rua_domains")
	return result
}

// ExtractMailtoDomains pulls the report-receiver domains out of a rua/ruf
// tag value.
func ExtractMailtoDomains(ruaString string) []string {
	if ruaString == "" {
		return nil
	}
	var domains []string
	for _, m := range mailtoExtractRe.FindAllStringSubmatch(ruaString, -1) {
		addr := m[1]
		if idx := strings.Index(addr, "@"); idx >= 0 {
			d := strings.TrimRight(strings.TrimSpace(addr[idx+1:]), ".")
			if d != "" {
				domains = append(domains, strings.ToLower(d))
			}
		}
	}
	return domains
}

package checker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	spfIncludeRe  = regexp.MustCompile(`(?i)include:([^\s]+)`)
	spfAMechRe    = regexp.MustCompile(`(?i)\ba[:/]`)
	spfMXMechRe   = regexp.MustCompile(`(?i)\bmx[:/\s]`)
	spfPTRMechRe  = regexp.MustCompile(`(?i)\bptr[:/\s]`)
	spfExistsRe   = regexp.MustCompile(`(?i)exists:`)
	spfRedirectRe = regexp.MustCompile(`(?i)redirect=([^\s]+)`)
	spfAllRe      = regexp.MustCompile(`(?i)([+\-~?]?)all\b`)
)

// maxSPFLookups is the RFC 7208 §4.6.4 limit on DNS-querying mechanisms.
const maxSPFLookups = 10

type spfEvaluation struct {
	lookupCount      int
	lookupMechanisms []string
	includes         []string
	permissiveness   *string
	allMechanism     *string
	issues           []string
	noMailIntent     bool
}

func classifySPFRecords(records []string) (validSPF, spfLike []string) {
	for _, record := range records {
		if record == "" {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(record))
		if lower == "v=spf1" || strings.HasPrefix(lower, "v=spf1 ") {
			validSPF = append(validSPF, record)
		} else if strings.Contains(lower, "spf") {
			spfLike = append(spfLike, record)
		}
	}
	return
}

func evaluateSPF(spfRecord string) spfEvaluation {
	var e spfEvaluation
	spfLower := strings.ToLower(spfRecord)

	includeMatches := spfIncludeRe.FindAllStringSubmatch(spfLower, -1)
	for _, m := range includeMatches {
		e.includes = append(e.includes, m[1])
		e.lookupMechanisms = append(e.lookupMechanisms, fmt.Sprintf("include:%s", m[1]))
	}
	e.lookupCount += len(includeMatches)

	aMatches := len(spfAMechRe.FindAllString(spfLower, -1))
	e.lookupCount += aMatches
	if aMatches > 0 {
		e.lookupMechanisms = append(e.lookupMechanisms, "a mechanism")
	}

	mxMatches := len(spfMXMechRe.FindAllString(spfLower, -1))
	e.lookupCount += mxMatches
	if mxMatches > 0 {
		e.lookupMechanisms = append(e.lookupMechanisms, "mx mechanism")
	}

	ptrMatches := len(spfPTRMechRe.FindAllString(spfLower, -1))
	e.lookupCount += ptrMatches
	if ptrMatches > 0 {
		e.lookupMechanisms = append(e.lookupMechanisms, "ptr mechanism (deprecated)")
		e.issues = append(e.issues, "PTR mechanism used (deprecated, slow)")
	}

	existsMatches := len(spfExistsRe.FindAllString(spfLower, -1))
	e.lookupCount += existsMatches
	if existsMatches > 0 {
		e.lookupMechanisms = append(e.lookupMechanisms, "exists mechanism")
	}

	if m := spfRedirectRe.FindStringSubmatch(spfLower); m != nil {
		e.lookupCount++
		e.lookupMechanisms = append(e.lookupMechanisms, fmt.Sprintf("redirect:%s", m[1]))
	}

	if m := spfAllRe.FindStringSubmatch(spfLower); m != nil {
		qualifier := m[1]
		if qualifier == "" {
			qualifier = "+"
		}
		am := qualifier + "all"
		e.allMechanism = &am

		var p string
		switch qualifier {
		case "+":
			p = "DANGEROUS"
			e.issues = append(e.issues, "+all allows anyone to send as your domain")
		case "?":
			p = "NEUTRAL"
			e.issues = append(e.issues, "?all provides no protection")
		case "~":
			p = "SOFT"
		case "-":
			p = "STRICT"
		}
		e.permissiveness = &p
	}

	normalized := strings.Join(strings.Fields(strings.TrimSpace(spfLower)), " ")
	if normalized == "v=spf1 -all" {
		e.noMailIntent = true
	}

	return e
}

func buildSPFVerdict(e spfEvaluation, validSPF, spfLike []string) (string, string) {
	if len(validSPF) > 1 {
		return "error", "Multiple SPF records found - this causes SPF to fail (RFC 7208)"
	}
	if len(validSPF) == 0 {
		if len(spfLike) > 0 {
			return "warning", "SPF-like record found but not valid - check syntax"
		}
		return "warning", "No SPF record found"
	}

	if e.lookupCount > maxSPFLookups {
		return "error", fmt.Sprintf("SPF exceeds 10 DNS lookup limit (%d/10) - PermError per RFC 7208 §4.6.4", e.lookupCount)
	}
	if e.lookupCount == maxSPFLookups {
		return "warning", "SPF at lookup limit (10/10 lookups) - no room for growth"
	}

	if e.permissiveness != nil {
		switch *e.permissiveness {
		case "DANGEROUS":
			return "error", "SPF uses +all - anyone can send as this domain"
		case "NEUTRAL":
			return "warning", "SPF uses ?all - provides no protection"
		}
	}

	if e.noMailIntent {
		return "success", "Valid SPF (no mail allowed) - domain declares it sends no email"
	}
	if e.permissiveness != nil && *e.permissiveness == "STRICT" {
		return "success", fmt.Sprintf("SPF valid with strict enforcement (-all), %d/10 lookups", e.lookupCount)
	}
	if e.permissiveness != nil && *e.permissiveness == "SOFT" {
		return "success", fmt.Sprintf("SPF valid with soft fail (~all), %d/10 lookups", e.lookupCount)
	}
	return "success", fmt.Sprintf("SPF valid, %d/10 lookups", e.lookupCount)
}

// AnalyzeSPF inspects the domain's TXT records for SPF policy problems.
func (c *Checker) AnalyzeSPF(ctx context.Context, domain string) map[string]any {
	txtRecords := c.DNS.QueryDNS(ctx, "TXT", domain)

	result := map[string]any{
		"status":            "warning",
		"message":           "No SPF record found",
		"records":           []string{},
		"valid_records":     []string{},
		"spf_like":          []string{},
		"lookup_count":      0,
		"lookup_mechanisms": []string{},
		"permissiveness":    nil,
		"all_mechanism":     nil,
		"issues":            []string{},
		"includes":          []string{},
		"no_mail_intent":    false,
	}

	if len(txtRecords) == 0 {
		return result
	}

	validSPF, spfLike := classifySPFRecords(txtRecords)

	var e spfEvaluation
	if len(validSPF) > 1 {
		e.issues = append(e.issues, "Multiple SPF records (hard fail)")
	}
	if len(validSPF) == 1 {
		e = evaluateSPF(validSPF[0])
		if e.lookupCount > maxSPFLookups {
			e.issues = append(e.issues, fmt.Sprintf("Exceeds 10 DNS lookup limit (%d lookups)", e.lookupCount))
		} else if e.lookupCount == maxSPFLookups {
			e.issues = append(e.issues, "At lookup limit (10/10)")
		}
	}

	status, message := buildSPFVerdict(e, validSPF, spfLike)

	result["status"] = status
	result["message"] = message
	result["records"] = txtRecords
	result["valid_records"] = validSPF
	result["spf_like"] = spfLike
	result["lookup_count"] = e.lookupCount
	result["lookup_mechanisms"] = e.lookupMechanisms
	result["permissiveness"] = derefStr(e.permissiveness)
	result["all_mechanism"] = derefStr(e.allMechanism)
	result["issues"] = e.issues
	result["includes"] = e.includes
	result["no_mail_intent"] = e.noMailIntent

	ensureStringSlices(result, "valid_records", "spf_like", "lookup_mechanisms", "issues", "includes")
	return result
}

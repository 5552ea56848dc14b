package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	msgDomainNotExist = "Domain does not exist or is not delegated"

	checkTimeout     = 60 * time.Second
	backpressureWait = 10 * time.Second
)

type namedResult struct {
	key    string
	result map[string]any
}

// CheckDomain runs every check for a domain and assembles the results
// map the web layer renders. The domain must already be normalized.
func (c *Checker) CheckDomain(ctx context.Context, domain string) map[string]any {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-time.After(backpressureWait):
		slog.Warn("Backpressure: rejected check", "domain", domain)
		return map[string]any{
			"domain":        domain,
			"error":         "System is currently at capacity. Please try again in a moment.",
			"check_success": false,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()

	if !c.domainExists(ctx, domain) {
		return c.buildNonExistentResult(domain, time.Since(start))
	}

	results := c.runParallelChecks(ctx, domain)

	mx := results["mx"]
	mxHosts := MXHostnames(mx)
	results["dane"] = c.AnalyzeDANE(ctx, domain, mxHosts)
	results["smtp_tls"] = c.AnalyzeSMTPTransport(ctx, domain, mxHosts)

	elapsed := time.Since(start)
	slog.Info("Domain check completed", "domain", domain,
		"elapsed_s", fmt.Sprintf("%.2f", elapsed.Seconds()),
		"spf", getStr(results["spf"], "status"),
		"dmarc", getStr(results["dmarc"], "status"),
		"dnssec", getStr(results["dnssec"], "status"))

	final := map[string]any{
		"domain":          domain,
		"domain_exists":   true,
		"check_success":   true,
		"elapsed_seconds": roundSeconds(elapsed),
		"records":         results["records"],
		"soa":             results["soa"],
		"ns":              results["ns"],
		"mx":              results["mx"],
		"spf":             results["spf"],
		"dmarc":           results["dmarc"],
		"dnssec":          results["dnssec"],
		"mta_sts":         results["mta_sts"],
		"tlsrpt":          results["tlsrpt"],
		"bimi":            results["bimi"],
		"dane":            results["dane"],
		"smtp_tls":        results["smtp_tls"],
	}

	spf := results["spf"]
	final["is_no_mail_domain"] = getBool(spf, "no_mail_intent") || getBool(mx, "null_mx")

	return final
}

// domainExists is the existence gate: a domain with no A, TXT, MX or NS
// records at all is treated as nonexistent or undelegated.
func (c *Checker) domainExists(ctx context.Context, domain string) bool {
	for _, rtype := range []string{"A", "TXT", "MX", "NS"} {
		if len(c.DNS.QueryDNS(ctx, rtype, domain)) > 0 {
			return true
		}
	}
	return false
}

func (c *Checker) runParallelChecks(ctx context.Context, domain string) map[string]map[string]any {
	tasks := map[string]func() map[string]any{
		"records": func() map[string]any { return c.GetBasicRecords(ctx, domain) },
		"soa":     func() map[string]any { return c.AnalyzeSOA(ctx, domain) },
		"ns":      func() map[string]any { return c.AnalyzeNS(ctx, domain) },
		"mx":      func() map[string]any { return c.AnalyzeMX(ctx, domain) },
		"spf":     func() map[string]any { return c.AnalyzeSPF(ctx, domain) },
		"dmarc":   func() map[string]any { return c.AnalyzeDMARC(ctx, domain) },
		"dnssec":  func() map[string]any { return c.AnalyzeDNSSEC(ctx, domain) },
		"mta_sts": func() map[string]any { return c.AnalyzeMTASTS(ctx, domain) },
		"tlsrpt":  func() map[string]any { return c.AnalyzeTLSRPT(ctx, domain) },
		"bimi":    func() map[string]any { return c.AnalyzeBIMI(ctx, domain) },
	}

	resultsCh := make(chan namedResult, len(tasks))
	for key, fn := range tasks {
		go func(k string, f func() map[string]any) {
			resultsCh <- namedResult{key: k, result: f()}
		}(key, fn)
	}

	results := make(map[string]map[string]any, len(tasks))
	for range tasks {
		nr := <-resultsCh
		results[nr.key] = nr.result
	}
	return results
}

func (c *Checker) buildNonExistentResult(domain string, elapsed time.Duration) map[string]any {
	notExist := func() map[string]any {
		return map[string]any{"status": "n/a", "message": msgDomainNotExist}
	}
	return map[string]any{
		"domain":          domain,
		"domain_exists":   false,
		"check_success":   true,
		"elapsed_seconds": roundSeconds(elapsed),
		"records": map[string]any{
			"A": []string{}, "AAAA": []string{}, "MX": []string{}, "TXT": []string{},
			"NS": []string{}, "CNAME": []string{}, "CAA": []string{}, "SOA": []string{},
		},
		"soa": map[string]any{
			"status":  "error",
			"message": msgDomainNotExist,
			"error":   fmt.Sprintf("The domain %s does not exist", domain),
			"records": []string{},
		},
		"ns":                map[string]any{"status": "n/a", "message": msgDomainNotExist, "nameservers": []string{}, "parent_ns": []string{}, "delegation_match": nil, "issues": []string{}},
		"mx":                map[string]any{"status": "n/a", "message": msgDomainNotExist, "records": []string{}, "hosts": []mxHost{}, "null_mx": false},
		"spf":               notExist(),
		"dmarc":             notExist(),
		"dnssec":            notExist(),
		"mta_sts":           notExist(),
		"tlsrpt":            notExist(),
		"bimi":              notExist(),
		"dane":              map[string]any{"status": "n/a", "message": msgDomainNotExist, "has_dane": false, "tlsa_records": []map[string]any{}, "issues": []string{}},
		"smtp_tls":          map[string]any{"status": "n/a", "message": msgDomainNotExist, "checked": false, "hosts": []map[string]any{}},
		"is_no_mail_domain": false,
	}
}

func roundSeconds(d time.Duration) float64 {
	return float64(int(d.Seconds()*1000)) / 1000
}

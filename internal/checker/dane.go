package checker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var daneUsageNames = map[int]string{
	0: "PKIX-TA (CA constraint)",
	1: "PKIX-EE (Certificate constraint)",
	2: "DANE-TA (Trust anchor)",
	3: "DANE-EE (Domain-issued certificate)",
}

var daneSelectorNames = map[int]string{
	0: "Full certificate",
	1: "Public key only (SubjectPublicKeyInfo)",
}

var daneMatchingNames = map[int]string{
	0: "Exact match",
	1: "SHA-256",
	2: "SHA-512",
}

func lookupName(m map[int]string, key int) string {
	if name, ok := m[key]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", key)
}

func (c *Checker) checkMXTLSA(ctx context.Context, mxHost string) []map[string]any {
	tlsaName := fmt.Sprintf("_25._tcp.%s", mxHost)
	var found []map[string]any

	for _, entry := range c.DNS.QueryDNS(ctx, "TLSA", tlsaName) {
		parts := strings.Fields(entry)
		if len(parts) < 4 {
			continue
		}
		usage, _ := strconv.Atoi(parts[0])
		selector, _ := strconv.Atoi(parts[1])
		mtype, _ := strconv.Atoi(parts[2])
		certData := strings.Join(parts[3:], "")

		certDisplay := certData
		if len(certData) > 64 {
			certDisplay = certData[:64] + "..."
		}

		rec := map[string]any{
			"mx_host":          mxHost,
			"tlsa_name":        tlsaName,
			"usage":            usage,
			"usage_name":       lookupName(daneUsageNames, usage),
			"selector":         selector,
			"selector_name":    lookupName(daneSelectorNames, selector),
			"matching_type":    mtype,
			"matching_name":    lookupName(daneMatchingNames, mtype),
			"certificate_data": certDisplay,
		}

		if usage == 0 || usage == 1 {
			rec["recommendation"] = "RFC 7672 §3.1 recommends usage 2 (DANE-TA) or 3 (DANE-EE) for SMTP"
		}

		found = append(found, rec)
	}

	return found
}

// AnalyzeDANE looks for TLSA records at _25._tcp.<mx> for every MX host.
func (c *Checker) AnalyzeDANE(ctx context.Context, domain string, mxHosts []string) map[string]any {
	if len(mxHosts) == 0 {
		return map[string]any{
			"status":       "info",
			"message":      "No MX hosts to check for DANE",
			"has_dane":     false,
			"tlsa_records": []map[string]any{},
			"issues":       []string{},
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var tlsaRecords []map[string]any
	hostsWithTLSA := make(map[string]bool)

	for _, host := range uniqueStrings(mxHosts) {
		wg.Add(1)
		go func(mxHost string) {
			defer wg.Done()
			recs := c.checkMXTLSA(ctx, mxHost)
			if len(recs) == 0 {
				return
			}
			mu.Lock()
			tlsaRecords = append(tlsaRecords, recs...)
			hostsWithTLSA[mxHost] = true
			mu.Unlock()
		}(host)
	}
	wg.Wait()

	if len(tlsaRecords) == 0 {
		return map[string]any{
			"status":       "info",
			"message":      "No DANE TLSA records - TLS is opportunistic only",
			"has_dane":     false,
			"tlsa_records": []map[string]any{},
			"issues":       []string{},
		}
	}

	var issues []string
	status := "success"
	message := fmt.Sprintf("DANE configured - %d TLSA record(s) on %d of %d MX host(s)",
		len(tlsaRecords), len(hostsWithTLSA), len(uniqueStrings(mxHosts)))
	if len(hostsWithTLSA) < len(uniqueStrings(mxHosts)) {
		status = "warning"
		issues = append(issues, "Not all MX hosts publish TLSA records - partial DANE coverage")
	}

	result := map[string]any{
		"status":       status,
		"message":      message,
		"has_dane":     true,
		"tlsa_records": tlsaRecords,
		"issues":       issues,
	}
	ensureStringSlices(result, "issues")
	return result
}

package checker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/domainaware/checkdmarc-web-frontend/internal/dnsclient"
)

var dnssecAlgorithmNames = map[int]string{
	5: "RSA/SHA-1", 7: "RSASHA1-NSEC3-SHA1", 8: "RSA/SHA-256",
	10: "RSA/SHA-512", 13: "ECDSA P-256/SHA-256", 14: "ECDSA P-384/SHA-384",
	15: "Ed25519", 16: "Ed448",
}

func parseDSAlgorithm(dsRecords []string) (*int, *string) {
	if len(dsRecords) == 0 {
		return nil, nil
	}
	parts := strings.Fields(dsRecords[0])
	if len(parts) < 2 {
		return nil, nil
	}
	algNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, nil
	}
	if name, ok := dnssecAlgorithmNames[algNum]; ok {
		return &algNum, &name
	}
	n := fmt.Sprintf("Algorithm %d", algNum)
	return &algNum, &n
}

// capRecords keeps at most limit records, shortening long key material
// for display when maxLen > 0.
func capRecords(records []string, limit, maxLen int) []string {
	var out []string
	for i, rec := range records {
		if i >= limit {
			break
		}
		if maxLen > 0 && len(rec) > maxLen {
			rec = rec[:maxLen] + "..."
		}
		out = append(out, rec)
	}
	return out
}

// AnalyzeDNSSEC checks the signing chain: DNSKEY at the zone, DS at the
// parent, and whether a validating resolver vouches with the AD bit.
func (c *Checker) AnalyzeDNSSEC(ctx context.Context, domain string) map[string]any {
	dnskeyRecords := capRecords(c.DNS.QueryDNS(ctx, "DNSKEY", domain), 3, 100)
	dsRecords := capRecords(c.DNS.QueryDNS(ctx, "DS", domain), 3, 0)

	hasDNSKEY := len(dnskeyRecords) > 0
	hasDS := len(dsRecords) > 0

	adResult := c.DNS.CheckDNSSECADFlag(ctx, domain)
	adFlag := adResult.ADFlag
	adResolver := adResult.ResolverUsed

	algorithm, algorithmName := parseDSAlgorithm(dsRecords)

	switch {
	case hasDNSKEY && hasDS:
		message := "DNSSEC configured (DNSKEY + DS present) but AD flag not set by resolver"
		if adFlag {
			message = "DNSSEC fully configured and validated - AD flag confirmed by resolver"
		}
		return map[string]any{
			"status":         "success",
			"message":        message,
			"has_dnskey":     true,
			"has_ds":         true,
			"dnskey_records": dnskeyRecords,
			"ds_records":     dsRecords,
			"algorithm":      algorithm,
			"algorithm_name": algorithmName,
			"chain_of_trust": "complete",
			"ad_flag":        adFlag,
			"ad_resolver":    derefStr(adResolver),
		}
	case hasDNSKEY && !hasDS:
		return map[string]any{
			"status":         "warning",
			"message":        "DNSSEC partially configured - DNSKEY exists but DS record missing at registrar",
			"has_dnskey":     true,
			"has_ds":         false,
			"dnskey_records": dnskeyRecords,
			"ds_records":     []string{},
			"algorithm":      nil,
			"algorithm_name": nil,
			"chain_of_trust": "broken",
			"ad_flag":        false,
			"ad_resolver":    derefStr(adResolver),
		}
	case adFlag:
		// No keys of its own but the resolver validates: signed parent.
		parentZone := dnsclient.FindParentZone(c.DNS, ctx, domain)
		var parentAlgo *int
		var parentAlgoName *string
		if parentZone != "" {
			parentAlgo, parentAlgoName = parseDSAlgorithm(c.DNS.QueryDNS(ctx, "DS", parentZone))
		}

		message := "DNSSEC validated by resolver - DNS responses are authenticated"
		if parentZone != "" {
			message = fmt.Sprintf("DNSSEC inherited from parent zone (%s) - DNS responses are authenticated", parentZone)
		}
		return map[string]any{
			"status":         "success",
			"message":        message,
			"has_dnskey":     false,
			"has_ds":         false,
			"dnskey_records": []string{},
			"ds_records":     []string{},
			"algorithm":      parentAlgo,
			"algorithm_name": parentAlgoName,
			"chain_of_trust": "inherited",
			"ad_flag":        true,
			"ad_resolver":    derefStr(adResolver),
			"is_subdomain":   true,
			"parent_zone":    parentZone,
		}
	default:
		return map[string]any{
			"status":         "warning",
			"message":        "DNSSEC not configured - DNS responses are unsigned",
			"has_dnskey":     false,
			"has_ds":         false,
			"dnskey_records": []string{},
			"ds_records":     []string{},
			"algorithm":      nil,
			"algorithm_name": nil,
			"chain_of_trust": "none",
			"ad_flag":        false,
			"ad_resolver":    nil,
		}
	}
}

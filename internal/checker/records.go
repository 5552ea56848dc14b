package checker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/domainaware/checkdmarc-web-frontend/internal/dnsclient"
)

// GetBasicRecords fans out lookups for the common record types.
func (c *Checker) GetBasicRecords(ctx context.Context, domain string) map[string]any {
	recordTypes := []string{"A", "AAAA", "MX", "TXT", "NS", "CNAME", "CAA", "SOA"}
	records := make(map[string]any)
	for _, t := range recordTypes {
		records[t] = []string{}
	}
	ttls := make(map[string]uint32)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, rt := range recordTypes {
		wg.Add(1)
		go func(rtype string) {
			defer wg.Done()
			result := c.DNS.QueryDNSWithTTL(ctx, rtype, domain)
			mu.Lock()
			if result.Records != nil {
				records[rtype] = result.Records
			}
			if result.TTL != nil {
				ttls[rtype] = *result.TTL
			}
			mu.Unlock()
		}(rt)
	}

	wg.Wait()
	records["_ttl"] = ttls
	return records
}

// AnalyzeSOA parses the zone's start-of-authority record.
func (c *Checker) AnalyzeSOA(ctx context.Context, domain string) map[string]any {
	soaRecords := c.DNS.QueryDNS(ctx, "SOA", domain)

	if len(soaRecords) == 0 {
		return map[string]any{
			"status":  "error",
			"message": "No SOA record found",
			"error":   fmt.Sprintf("The domain %s does not exist", domain),
			"records": []string{},
		}
	}

	result := map[string]any{
		"status":  "success",
		"message": "SOA record found",
		"records": soaRecords,
	}

	// mname rname serial refresh retry expire minimum
	parts := strings.Fields(soaRecords[0])
	if len(parts) >= 7 {
		result["mname"] = strings.TrimRight(parts[0], ".")
		result["rname"] = strings.TrimRight(parts[1], ".")
		if serial, err := strconv.ParseUint(parts[2], 10, 64); err == nil {
			result["serial"] = serial
		}
		if refresh, err := strconv.Atoi(parts[3]); err == nil {
			result["refresh"] = refresh
		}
		if retry, err := strconv.Atoi(parts[4]); err == nil {
			result["retry"] = retry
		}
		if expire, err := strconv.Atoi(parts[5]); err == nil {
			result["expire"] = expire
		}
		if minimum, err := strconv.Atoi(parts[6]); err == nil {
			result["minimum"] = minimum
		}
	}

	return result
}

// AnalyzeNS lists the delegated nameservers.
func (c *Checker) AnalyzeNS(ctx context.Context, domain string) map[string]any {
	nsRecords := c.DNS.QueryDNS(ctx, "NS", domain)

	if len(nsRecords) == 0 {
		return map[string]any{
			"status":           "error",
			"message":          "No nameservers found",
			"nameservers":      []string{},
			"parent_ns":        []string{},
			"delegation_match": nil,
			"issues":           []string{},
		}
	}

	var nameservers []string
	for _, ns := range nsRecords {
		nameservers = append(nameservers, strings.TrimRight(strings.TrimSpace(ns), "."))
	}
	sort.Strings(nameservers)

	var issues []string
	status := "success"
	message := fmt.Sprintf("%d nameservers delegated", len(nameservers))
	if len(nameservers) < 2 {
		status = "warning"
		message = "Only one nameserver delegated - single point of failure"
		issues = append(issues, "Fewer than 2 nameservers (RFC 1034 recommends at least two)")
	}

	parentNS := c.parentDelegation(ctx, domain)
	var delegationMatch any
	if len(parentNS) > 0 {
		match := nsSetsMatch(nameservers, parentNS)
		delegationMatch = match
		if !match {
			issues = append(issues, "Parent zone delegation lists different nameservers - may be a recent change still propagating")
			if status == "success" {
				status = "warning"
				message = "NS delegation mismatch between parent and child zone"
			}
		}
	}

	result := map[string]any{
		"status":           status,
		"message":          message,
		"nameservers":      nameservers,
		"parent_ns":        parentNS,
		"delegation_match": delegationMatch,
		"issues":           issues,
	}
	ensureStringSlices(result, "parent_ns", "issues")
	return result
}

// parentDelegation asks one of the parent zone's nameservers for the
// domain's NS delegation, bypassing recursive resolvers.
func (c *Checker) parentDelegation(ctx context.Context, domain string) []string {
	parentZone := dnsclient.FindParentZone(c.DNS, ctx, domain)
	if parentZone == "" || strings.EqualFold(parentZone, domain) {
		return nil
	}

	parentServers := c.DNS.QueryDNS(ctx, "NS", parentZone)
	if len(parentServers) == 0 {
		return nil
	}
	parentIPs := c.DNS.QueryDNS(ctx, "A", strings.TrimRight(parentServers[0], "."))
	if len(parentIPs) == 0 {
		return nil
	}

	delegation, err := c.DNS.QuerySpecificResolver(ctx, "NS", domain, parentIPs[0])
	if err != nil || len(delegation) == 0 {
		return nil
	}

	var out []string
	for _, ns := range delegation {
		out = append(out, strings.ToLower(strings.TrimRight(strings.TrimSpace(ns), ".")))
	}
	sort.Strings(out)
	return out
}

func nsSetsMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = true
	}
	for _, s := range b {
		if !set[strings.ToLower(s)] {
			return false
		}
	}
	return true
}

type mxHost struct {
	Preference int    `json:"preference"`
	Host       string `json:"host"`
}

func parseMXRecords(records []string) (hosts []mxHost, nullMX bool) {
	for _, r := range records {
		fields := strings.Fields(strings.TrimSpace(r))
		if len(fields) != 2 {
			continue
		}
		pref, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		host := strings.TrimRight(fields[1], ".")
		if host == "" && pref == 0 {
			nullMX = true
			continue
		}
		hosts = append(hosts, mxHost{Preference: pref, Host: strings.ToLower(host)})
	}
	sort.Slice(hosts, func(i, j int) bool {
		if hosts[i].Preference != hosts[j].Preference {
			return hosts[i].Preference < hosts[j].Preference
		}
		return hosts[i].Host < hosts[j].Host
	})
	return hosts, nullMX
}

// AnalyzeMX parses MX records, detecting the RFC 7505 null MX.
func (c *Checker) AnalyzeMX(ctx context.Context, domain string) map[string]any {
	mxRecords := c.DNS.QueryDNS(ctx, "MX", domain)

	if len(mxRecords) == 0 {
		return map[string]any{
			"status":  "warning",
			"message": "No MX records found - domain cannot receive mail via MX",
			"records": []string{},
			"hosts":   []mxHost{},
			"null_mx": false,
		}
	}

	hosts, nullMX := parseMXRecords(mxRecords)

	if nullMX && len(hosts) == 0 {
		return map[string]any{
			"status":  "info",
			"message": "Null MX (RFC 7505) - domain declares it receives no mail",
			"records": mxRecords,
			"hosts":   []mxHost{},
			"null_mx": true,
		}
	}

	status := "success"
	message := fmt.Sprintf("%d mail server(s) configured", len(hosts))
	if nullMX {
		status = "error"
		message = "Null MX mixed with regular MX records - invalid configuration"
	}

	return map[string]any{
		"status":  status,
		"message": message,
		"records": mxRecords,
		"hosts":   hosts,
		"null_mx": nullMX,
	}
}

// MXHostnames returns the preference-ordered MX host list from an
// AnalyzeMX result.
func MXHostnames(mxResult map[string]any) []string {
	hosts, ok := mxResult["hosts"].([]mxHost)
	if !ok {
		return nil
	}
	var names []string
	for _, h := range hosts {
		names = append(names, h.Host)
	}
	return uniqueStrings(names)
}

package dnsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// ResolverConfig names one public recursive resolver.
type ResolverConfig struct {
	Name string
	IP   string
}

var DefaultResolvers = []ResolverConfig{
	{Name: "Cloudflare", IP: "1.1.1.1"},
	{Name: "Google", IP: "8.8.8.8"},
	{Name: "Quad9", IP: "9.9.9.9"},
	{Name: "OpenDNS", IP: "208.67.222.222"},
}

var UserAgent = "checkdmarc-web/1.0"

func SetUserAgentVersion(version string) {
	UserAgent = fmt.Sprintf("checkdmarc-web/%s", version)
}

const (
	dohGoogleURL    = "https://dns.google/resolve"
	defaultTimeout  = 2 * time.Second
	defaultCacheTTL = 60 * time.Second
	defaultCacheMax = 2048
)

// RecordWithTTL carries record strings plus the TTL of the first answer.
type RecordWithTTL struct {
	Records []string
	TTL     *uint32
}

// ADFlagResult reports whether a validating resolver set the AD bit.
type ADFlagResult struct {
	ADFlag       bool    `json:"ad_flag"`
	Validated    bool    `json:"validated"`
	ResolverUsed *string `json:"resolver_used"`
	Error        *string `json:"error"`
}

type Client struct {
	resolvers  []ResolverConfig
	httpClient *http.Client
	timeout    time.Duration

	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
	cacheMax int
}

type cacheEntry struct {
	data      []string
	timestamp time.Time
}

type Option func(*Client)

func WithResolvers(r []ResolverConfig) Option {
	return func(c *Client) { c.resolvers = r }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.timeout = t }
}

func WithCacheTTL(t time.Duration) Option {
	return func(c *Client) { c.cacheTTL = t }
}

func New(opts ...Option) *Client {
	c := &Client{
		resolvers: DefaultResolvers,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
		timeout:  defaultTimeout,
		cache:    make(map[string]cacheEntry),
		cacheTTL: defaultCacheTTL,
		cacheMax: defaultCacheMax,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) cacheGet(key string) ([]string, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.cacheTTL {
		return nil, false
	}
	return entry.data, true
}

func (c *Client) cacheSet(key string, data []string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{data: data, timestamp: time.Now()}
	if len(c.cache) > c.cacheMax {
		cutoff := time.Now().Add(-c.cacheTTL)
		for k, v := range c.cache {
			if v.timestamp.Before(cutoff) {
				delete(c.cache, k)
			}
		}
	}
}

func dnsTypeFromString(recordType string) (uint16, error) {
	if t, ok := dns.StringToType[strings.ToUpper(recordType)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unsupported record type: %s", recordType)
}

func rrToString(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.MX:
		return fmt.Sprintf("%d %s", v.Preference, v.Mx)
	case *dns.TXT:
		return strings.Join(v.Txt, "")
	case *dns.NS:
		return v.Ns
	case *dns.CNAME:
		return v.Target
	case *dns.CAA:
		return fmt.Sprintf("%d %s \"%s\"", v.Flag, v.Tag, v.Value)
	case *dns.SOA:
		return fmt.Sprintf("%s %s %d %d %d %d %d", v.Ns, v.Mbox, v.Serial, v.Refresh, v.Retry, v.Expire, v.Minttl)
	case *dns.SRV:
		return fmt.Sprintf("%d %d %d %s", v.Priority, v.Weight, v.Port, v.Target)
	case *dns.TLSA:
		return fmt.Sprintf("%d %d %d %s", v.Usage, v.Selector, v.MatchingType, v.Certificate)
	case *dns.DNSKEY, *dns.DS, *dns.RRSIG:
		hdr := rr.Header().String()
		return strings.TrimSpace(strings.TrimPrefix(rr.String(), hdr))
	default:
		hdr := rr.Header().String()
		return strings.TrimSpace(strings.TrimPrefix(rr.String(), hdr))
	}
}

// QueryDNS resolves recordType for domain, trying DoH first and falling
// back through the resolver pool. Results are cached.
func (c *Client) QueryDNS(ctx context.Context, recordType, domain string) []string {
	if domain == "" || recordType == "" {
		return nil
	}

	cacheKey := fmt.Sprintf("%s:%s", strings.ToUpper(recordType), strings.ToLower(domain))
	if cached, ok := c.cacheGet(cacheKey); ok {
		return cached
	}

	results := c.dohQuery(ctx, domain, recordType)
	if len(results) > 0 {
		c.cacheSet(cacheKey, results)
		return results
	}

	for _, resolver := range c.resolvers {
		results = c.udpQuery(ctx, domain, recordType, resolver.IP)
		if len(results) > 0 {
			c.cacheSet(cacheKey, results)
			return results
		}
	}

	return nil
}

// QueryDNSWithTTL is QueryDNS without the cache, keeping the answer TTL.
func (c *Client) QueryDNSWithTTL(ctx context.Context, recordType, domain string) RecordWithTTL {
	if domain == "" || recordType == "" {
		return RecordWithTTL{}
	}

	result := c.dohQueryWithTTL(ctx, domain, recordType)
	if len(result.Records) > 0 {
		return result
	}

	for _, resolver := range c.resolvers {
		result = c.udpQueryWithTTL(ctx, domain, recordType, resolver.IP)
		if len(result.Records) > 0 {
			return result
		}
	}

	return RecordWithTTL{}
}

func (c *Client) exchangeWithFallback(ctx context.Context, msg *dns.Msg, resolverAddr string) (*dns.Msg, error) {
	client := &dns.Client{Timeout: c.timeout}
	r, _, err := client.ExchangeContext(ctx, msg, resolverAddr)
	if err == nil && r != nil && !r.Truncated {
		return r, nil
	}

	if err != nil {
		slog.Debug("UDP query failed, falling back to TCP", "resolver", resolverAddr, "error", err)
	}
	tcpClient := &dns.Client{Net: "tcp", Timeout: c.timeout}
	r, _, err = tcpClient.ExchangeContext(ctx, msg, resolverAddr)
	return r, err
}

// QuerySpecificResolver queries one resolver without recursion, for
// authoritative-server lookups.
func (c *Client) QuerySpecificResolver(ctx context.Context, recordType, domain, resolverIP string) ([]string, error) {
	qtype, err := dnsTypeFromString(recordType)
	if err != nil {
		return nil, err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = false

	r, err := c.exchangeWithFallback(ctx, msg, net.JoinHostPort(resolverIP, "53"))
	if err != nil {
		return nil, err
	}

	if r.Rcode == dns.RcodeNameError {
		return nil, nil
	}

	var results []string
	for _, rr := range r.Answer {
		if s := rrToString(rr); s != "" {
			results = append(results, s)
		}
	}
	sort.Strings(results)
	return results, nil
}

// CheckDNSSECADFlag asks validating resolvers whether responses for the
// domain carry the AD bit. Falls back to SOA when the A answer is empty.
func (c *Client) CheckDNSSECADFlag(ctx context.Context, domain string) ADFlagResult {
	result := ADFlagResult{}
	validatingResolvers := []string{"8.8.8.8", "1.1.1.1"}

	for _, resolverIP := range validatingResolvers {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)
		msg.RecursionDesired = true
		msg.SetEdns0(4096, true)

		client := &dns.Client{Timeout: 3 * time.Second}
		r, _, err := client.ExchangeContext(ctx, msg, net.JoinHostPort(resolverIP, "53"))
		if err != nil {
			slog.Debug("AD flag check failed", "resolver", resolverIP, "error", err)
			continue
		}

		if r.Rcode == dns.RcodeNameError {
			errStr := "Domain not found"
			result.Error = &errStr
			return result
		}

		if len(r.Answer) == 0 {
			msg2 := new(dns.Msg)
			msg2.SetQuestion(dns.Fqdn(domain), dns.TypeSOA)
			msg2.RecursionDesired = true
			msg2.SetEdns0(4096, true)
			if r2, _, err2 := client.ExchangeContext(ctx, msg2, net.JoinHostPort(resolverIP, "53")); err2 == nil {
				r = r2
			}
		}

		resolver := resolverIP
		result.ADFlag = r.AuthenticatedData
		result.Validated = r.AuthenticatedData
		result.ResolverUsed = &resolver
		return result
	}

	errStr := "Could not verify AD flag"
	result.Error = &errStr
	return result
}

// ProbeExists checks whether the domain resolves at all, returning any
// CNAME target seen along the way.
func (c *Client) ProbeExists(ctx context.Context, domain string) (exists bool, cname string) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: 3 * time.Second}

	resolverIP := "8.8.8.8"
	r, _, err := client.ExchangeContext(ctx, msg, net.JoinHostPort(resolverIP, "53"))
	if err != nil {
		resolverIP = "1.1.1.1"
		r, _, err = client.ExchangeContext(ctx, msg, net.JoinHostPort(resolverIP, "53"))
		if err != nil {
			return false, ""
		}
	}

	if r.Rcode == dns.RcodeNameError {
		return false, ""
	}

	hasA := false
	cnameTarget := ""
	for _, rr := range r.Answer {
		switch v := rr.(type) {
		case *dns.A:
			hasA = true
		case *dns.CNAME:
			if cnameTarget == "" {
				cnameTarget = strings.TrimSuffix(v.Target, ".")
			}
		}
	}

	if hasA || cnameTarget != "" {
		return true, cnameTarget
	}
	return false, ""
}

func (c *Client) udpQuery(ctx context.Context, domain, recordType, resolverIP string) []string {
	return c.udpQueryWithTTL(ctx, domain, recordType, resolverIP).Records
}

func (c *Client) udpQueryWithTTL(ctx context.Context, domain, recordType, resolverIP string) RecordWithTTL {
	qtype, err := dnsTypeFromString(recordType)
	if err != nil {
		return RecordWithTTL{}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	r, err := c.exchangeWithFallback(ctx, msg, net.JoinHostPort(resolverIP, "53"))
	if err != nil || r == nil {
		return RecordWithTTL{}
	}

	if r.Rcode == dns.RcodeNameError {
		return RecordWithTTL{}
	}

	var results []string
	var ttl *uint32
	for _, rr := range r.Answer {
		if s := rrToString(rr); s != "" {
			results = append(results, s)
			if ttl == nil {
				t := rr.Header().Ttl
				ttl = &t
			}
		}
	}

	return RecordWithTTL{Records: results, TTL: ttl}
}

func (c *Client) dohQuery(ctx context.Context, domain, recordType string) []string {
	return c.dohQueryWithTTL(ctx, domain, recordType).Records
}

type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Data string `json:"data"`
		TTL  uint32 `json:"TTL"`
	} `json:"Answer"`
}

func (c *Client) dohQueryWithTTL(ctx context.Context, domain, recordType string) RecordWithTTL {
	req, err := http.NewRequestWithContext(ctx, "GET", dohGoogleURL, nil)
	if err != nil {
		return RecordWithTTL{}
	}

	q := url.Values{}
	q.Set("name", domain)
	q.Set("type", strings.ToUpper(recordType))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/dns-json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("DoH query failed", "domain", domain, "type", recordType, "error", err)
		return RecordWithTTL{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RecordWithTTL{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RecordWithTTL{}
	}

	return parseDohResponse(body, recordType)
}

func parseDohResponse(body []byte, recordType string) RecordWithTTL {
	var data dohResponse
	if json.Unmarshal(body, &data) != nil {
		return RecordWithTTL{}
	}

	if data.Status != 0 || len(data.Answer) == 0 {
		return RecordWithTTL{}
	}

	var results []string
	var ttl *uint32
	seen := make(map[string]bool)
	for _, answer := range data.Answer {
		rd := strings.TrimSpace(answer.Data)
		if rd == "" {
			continue
		}
		if strings.ToUpper(recordType) == "TXT" {
			rd = strings.Trim(rd, "\"")
		}
		if !seen[rd] {
			results = append(results, rd)
			seen[rd] = true
		}
		if ttl == nil {
			t := answer.TTL
			ttl = &t
		}
	}

	return RecordWithTTL{Records: results, TTL: ttl}
}

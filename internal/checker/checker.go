// Package checker runs the DNS and email-authentication checks for a
// domain: SOA, NS, MX, SPF, DMARC, DNSSEC, MTA-STS, TLS-RPT, BIMI and
// DANE/STARTTLS. Every check returns a map with at least "status" and
// "message" keys so the web layer can render results uniformly.
package checker

import (
	"net/http"
	"time"

	"github.com/domainaware/checkdmarc-web-frontend/internal/dnsclient"
)

type Checker struct {
	DNS  *dnsclient.Client
	HTTP *http.Client

	// CheckSMTPTLS enables live STARTTLS probes of MX hosts. Off by
	// default: probing port 25 from arbitrary hosts is often blocked.
	CheckSMTPTLS bool

	maxConcurrent int
	semaphore     chan struct{}
}

type Option func(*Checker)

func WithMaxConcurrent(n int) Option {
	return func(c *Checker) {
		c.maxConcurrent = n
		c.semaphore = make(chan struct{}, n)
	}
}

func WithSMTPTLS(enabled bool) Option {
	return func(c *Checker) { c.CheckSMTPTLS = enabled }
}

func WithDNSClient(d *dnsclient.Client) Option {
	return func(c *Checker) { c.DNS = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Checker) { c.HTTP = h }
}

func New(opts ...Option) *Checker {
	c := &Checker{
		DNS: dnsclient.New(),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// MTA-STS policies must not redirect (RFC 8461 §3.3).
				return http.ErrUseLastResponse
			},
		},
		maxConcurrent: 6,
		semaphore:     make(chan struct{}, 6),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

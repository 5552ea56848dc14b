package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"sync"
	"time"
)

const smtpProbeTimeout = 8 * time.Second

type smtpProbeResult struct {
	host        string
	starttls    bool
	tlsVersion  string
	certValid   bool
	certExpires *time.Time
	err         string
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("unknown (0x%04x)", v)
	}
}

func probeMXStartTLS(ctx context.Context, mxHost string) smtpProbeResult {
	result := smtpProbeResult{host: mxHost}

	dialer := &net.Dialer{Timeout: smtpProbeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(mxHost, "25"))
	if err != nil {
		result.err = classifyHTTPError(err)
		return result
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(smtpProbeTimeout))

	client, err := smtp.NewClient(conn, mxHost)
	if err != nil {
		result.err = classifyHTTPError(err)
		return result
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); !ok {
		result.err = "Server does not advertise STARTTLS"
		return result
	}

	if err := client.StartTLS(&tls.Config{ServerName: mxHost}); err != nil {
		result.starttls = true
		result.err = classifyHTTPError(err)
		return result
	}

	result.starttls = true
	if state, ok := client.TLSConnectionState(); ok {
		result.tlsVersion = tlsVersionName(state.Version)
		if len(state.PeerCertificates) > 0 {
			cert := state.PeerCertificates[0]
			now := time.Now()
			result.certValid = now.After(cert.NotBefore) && now.Before(cert.NotAfter)
			expires := cert.NotAfter
			result.certExpires = &expires
		}
	}

	return result
}

// AnalyzeSMTPTransport probes each MX host for STARTTLS support. Skipped
// unless the CHECK_SMTP_TLS flag enabled probing.
func (c *Checker) AnalyzeSMTPTransport(ctx context.Context, domain string, mxHosts []string) map[string]any {
	if !c.CheckSMTPTLS {
		return map[string]any{
			"status":  "info",
			"message": "SMTP TLS probing disabled (set CHECK_SMTP_TLS to enable)",
			"checked": false,
			"hosts":   []map[string]any{},
		}
	}

	if len(mxHosts) == 0 {
		return map[string]any{
			"status":  "n/a",
			"message": "No MX hosts to probe",
			"checked": false,
			"hosts":   []map[string]any{},
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var probed []smtpProbeResult

	for _, host := range uniqueStrings(mxHosts) {
		wg.Add(1)
		go func(mxHost string) {
			defer wg.Done()
			r := probeMXStartTLS(ctx, mxHost)
			mu.Lock()
			probed = append(probed, r)
			mu.Unlock()
		}(host)
	}
	wg.Wait()

	hosts := make([]map[string]any, 0, len(probed))
	allTLS := true
	anyReached := false
	for _, r := range probed {
		h := map[string]any{
			"host":        r.host,
			"starttls":    r.starttls,
			"tls_version": r.tlsVersion,
			"cert_valid":  r.certValid,
		}
		if r.certExpires != nil {
			h["cert_expires"] = r.certExpires.Format(time.RFC3339)
		}
		if r.err != "" {
			h["error"] = r.err
		} else {
			anyReached = true
		}
		if !r.starttls || r.err != "" {
			allTLS = false
		}
		hosts = append(hosts, h)
	}

	status := "success"
	message := fmt.Sprintf("STARTTLS verified on all %d MX host(s)", len(hosts))
	switch {
	case !anyReached:
		status = "warning"
		message = "Could not reach any MX host on port 25 (probe may be blocked)"
	case !allTLS:
		status = "warning"
		message = "STARTTLS missing or failing on some MX hosts"
	}

	return map[string]any{
		"status":  status,
		"message": message,
		"checked": true,
		"hosts":   hosts,
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/domainaware/checkdmarc-web-frontend/internal/checker"
	"github.com/domainaware/checkdmarc-web-frontend/internal/config"
	"github.com/domainaware/checkdmarc-web-frontend/internal/db"
	"github.com/domainaware/checkdmarc-web-frontend/internal/dnsclient"

	"github.com/gin-gonic/gin"
)

type DomainHandler struct {
	Config  *config.Config
	Checker *checker.Checker
	DB      *db.Database
}

func NewDomainHandler(cfg *config.Config, chk *checker.Checker, database *db.Database) *DomainHandler {
	return &DomainHandler{Config: cfg, Checker: chk, DB: database}
}

// View runs the checks for a domain and renders the report page. A domain
// that does not resolve at all gets a 404 with its own page.
func (h *DomainHandler) View(c *gin.Context) {
	nonce, _ := c.Get("csp_nonce")

	domain, ascii, ok := h.resolveDomainParam(c)
	if !ok {
		c.HTML(http.StatusNotFound, "domain-not-found.html", gin.H{
			"SiteTitle":  h.Config.SiteTitle,
			"AppVersion": h.Config.AppVersion,
			"CspNonce":   nonce,
			"Domain":     c.Param("domain"),
			"Reason":     "That does not look like a valid domain name.",
		})
		return
	}

	results := h.Checker.CheckDomain(c.Request.Context(), ascii)

	if !getResultBool(results, "check_success") {
		c.HTML(http.StatusServiceUnavailable, "index.html", gin.H{
			"SiteTitle":  h.Config.SiteTitle,
			"AppVersion": h.Config.AppVersion,
			"CspNonce":   nonce,
			"FlashMessage": gin.H{
				"Category": "warning",
				"Message":  results["error"],
			},
		})
		return
	}

	if !getResultBool(results, "domain_exists") {
		c.HTML(http.StatusNotFound, "domain-not-found.html", gin.H{
			"SiteTitle":  h.Config.SiteTitle,
			"AppVersion": h.Config.AppVersion,
			"CspNonce":   nonce,
			"Domain":     domain,
			"Reason":     soaError(results),
		})
		return
	}

	h.saveCheck(c, domain, ascii, results)

	c.HTML(http.StatusOK, "domain.html", gin.H{
		"SiteTitle":      h.Config.SiteTitle,
		"SiteAuthor":     h.Config.SiteAuthor,
		"SiteAuthorURL":  h.Config.SiteAuthorURL,
		"AppVersion":     h.Config.AppVersion,
		"CspNonce":       nonce,
		"Domain":         domain,
		"ASCIIDomain":    ascii,
		"Results":        results,
		"ElapsedSeconds": results["elapsed_seconds"],
	})
}

// resolveDomainParam normalizes the :domain path parameter. Returns the
// display form, the punycode form, and whether it validates.
func (h *DomainHandler) resolveDomainParam(c *gin.Context) (display, ascii string, ok bool) {
	raw := strings.TrimSpace(c.Param("domain"))
	if raw == "" {
		return "", "", false
	}

	display = dnsclient.NormalizeDomain(raw)
	ascii, err := dnsclient.DomainToASCII(display)
	if err != nil || !dnsclient.ValidateDomain(ascii) {
		return display, "", false
	}
	return display, ascii, true
}

func (h *DomainHandler) saveCheck(c *gin.Context, domain, ascii string, results map[string]any) {
	if h.DB == nil {
		return
	}

	fullResults, err := json.Marshal(results)
	if err != nil {
		return
	}

	check := db.DomainCheck{
		Domain:       domain,
		ASCIIDomain:  ascii,
		FullResults:  fullResults,
		CheckSuccess: true,
	}
	if s := resultStatus(results, "spf"); s != "" {
		check.SPFStatus = &s
	}
	if s := resultStatus(results, "dmarc"); s != "" {
		check.DMARCStatus = &s
	}
	if s := resultStatus(results, "dnssec"); s != "" {
		check.DNSSECStatus = &s
	}
	if dmarc, ok := results["dmarc"].(map[string]any); ok {
		if policy, ok := dmarc["policy"].(string); ok && policy != "" {
			check.DMARCPolicy = &policy
		}
	}
	if elapsed, ok := results["elapsed_seconds"].(float64); ok {
		check.CheckDuration = &elapsed
	}

	h.DB.SaveCheck(c.Request.Context(), check)
}

func getResultBool(results map[string]any, key string) bool {
	b, _ := results[key].(bool)
	return b
}

func resultStatus(results map[string]any, section string) string {
	if m, ok := results[section].(map[string]any); ok {
		if s, ok := m["status"].(string); ok {
			return s
		}
	}
	return ""
}

func soaError(results map[string]any) string {
	if soa, ok := results["soa"].(map[string]any); ok {
		if e, ok := soa["error"].(string); ok && e != "" {
			return e
		}
	}
	return "Domain does not exist or is not delegated"
}

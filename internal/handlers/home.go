package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/domainaware/checkdmarc-web-frontend/internal/config"
	"github.com/domainaware/checkdmarc-web-frontend/internal/dnsclient"

	"github.com/gin-gonic/gin"
)

type HomeHandler struct {
	Config *config.Config
}

func NewHomeHandler(cfg *config.Config) *HomeHandler {
	return &HomeHandler{Config: cfg}
}

// Index renders the landing page with the domain form.
func (h *HomeHandler) Index(c *gin.Context) {
	nonce, _ := c.Get("csp_nonce")
	c.HTML(http.StatusOK, "index.html", gin.H{
		"SiteTitle":       h.Config.SiteTitle,
		"SiteAuthor":      h.Config.SiteAuthor,
		"SiteAuthorURL":   h.Config.SiteAuthorURL,
		"AppVersion":      h.Config.AppVersion,
		"MaintenanceNote": h.Config.MaintenanceNote,
		"CspNonce":        nonce,
		"FlashMessage":    popFlash(c),
	})
}

// Submit normalizes the submitted domain and redirects to its report.
// The redirect keeps report URLs shareable and bookmarkable.
func (h *HomeHandler) Submit(c *gin.Context) {
	raw := strings.TrimSpace(c.PostForm("domain"))
	if raw == "" {
		setFlash(c, "warning", "Please enter a domain name.")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	normalized := dnsclient.NormalizeDomain(raw)
	ascii, err := dnsclient.DomainToASCII(normalized)
	if err != nil || !dnsclient.ValidateDomain(ascii) {
		setFlash(c, "warning", "That does not look like a valid domain name.")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	c.Redirect(http.StatusSeeOther, "/domain/"+url.PathEscape(ascii))
}

func setFlash(c *gin.Context, category, message string) {
	c.SetCookie("flash_message", message, 10, "/", "", false, false)
	c.SetCookie("flash_category", category, 10, "/", "", false, false)
}

// popFlash reads and clears the one-shot flash cookies.
func popFlash(c *gin.Context) gin.H {
	message, err := c.Cookie("flash_message")
	if err != nil || message == "" {
		return nil
	}
	category, _ := c.Cookie("flash_category")
	if category == "" {
		category = "info"
	}
	c.SetCookie("flash_message", "", -1, "/", "", false, false)
	c.SetCookie("flash_category", "", -1, "/", "", false, false)
	return gin.H{"Category": category, "Message": message}
}

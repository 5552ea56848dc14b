package handlers

import (
	"net/http"
	"strconv"

	"github.com/domainaware/checkdmarc-web-frontend/internal/config"
	"github.com/domainaware/checkdmarc-web-frontend/internal/db"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 25
	maxHistoryLimit     = 100
)

type HistoryHandler struct {
	Config *config.Config
	DB     *db.Database
}

func NewHistoryHandler(cfg *config.Config, database *db.Database) *HistoryHandler {
	return &HistoryHandler{Config: cfg, DB: database}
}

// Recent renders the recent-checks page. Only routed when a database is
// configured.
func (h *HistoryHandler) Recent(c *gin.Context) {
	nonce, _ := c.Get("csp_nonce")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	checks, err := h.DB.RecentChecks(c.Request.Context(), limit)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "index.html", gin.H{
			"SiteTitle":  h.Config.SiteTitle,
			"AppVersion": h.Config.AppVersion,
			"CspNonce":   nonce,
			"FlashMessage": gin.H{
				"Category": "danger",
				"Message":  "Could not load check history.",
			},
		})
		return
	}

	c.HTML(http.StatusOK, "history.html", gin.H{
		"SiteTitle":  h.Config.SiteTitle,
		"AppVersion": h.Config.AppVersion,
		"CspNonce":   nonce,
		"Checks":     checks,
	})
}

// APIStats returns daily aggregate counts as JSON.
func (h *HistoryHandler) APIStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		days = 30
	}

	stats, err := h.DB.DailyStats(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "stats": stats})
}

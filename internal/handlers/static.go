package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type StaticHandler struct {
	StaticDir  string
	AppVersion string
	BaseURL    string
}

func NewStaticHandler(staticDir, appVersion, baseURL string) *StaticHandler {
	return &StaticHandler{StaticDir: staticDir, AppVersion: appVersion, BaseURL: baseURL}
}

func (h *StaticHandler) RobotsTxt(c *gin.Context) {
	c.File(filepath.Join(h.StaticDir, "robots.txt"))
}

func (h *StaticHandler) ManifestJSON(c *gin.Context) {
	c.Header("Content-Type", "application/manifest+json")
	c.File(filepath.Join(h.StaticDir, "manifest.json"))
}

// ServiceWorker serves sw.js with the app version injected so a deploy
// invalidates the client-side cache.
func (h *StaticHandler) ServiceWorker(c *gin.Context) {
	body, err := os.ReadFile(filepath.Join(h.StaticDir, "sw.js"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	sw := strings.ReplaceAll(string(body), "SW_VERSION_PLACEHOLDER", h.AppVersion)

	c.Header("Content-Type", "application/javascript")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.String(http.StatusOK, sw)
}

func (h *StaticHandler) SitemapXML(c *gin.Context) {
	today := time.Now().Format("2006-01-02")

	pages := []struct {
		Loc        string
		Changefreq string
		Priority   string
	}{
		{h.BaseURL + "/", "weekly", "1.0"},
		{h.BaseURL + "/history", "daily", "0.6"},
	}

	xml := `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	xml += `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n"
	for _, page := range pages {
		xml += "  <url>\n"
		xml += fmt.Sprintf("    <loc>%s</loc>\n", page.Loc)
		xml += fmt.Sprintf("    <lastmod>%s</lastmod>\n", today)
		xml += fmt.Sprintf("    <changefreq>%s</changefreq>\n", page.Changefreq)
		xml += fmt.Sprintf("    <priority>%s</priority>\n", page.Priority)
		xml += "  </url>\n"
	}
	xml += "</urlset>\n"

	c.Data(http.StatusOK, "application/xml", []byte(xml))
}

package main

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/domainaware/checkdmarc-web-frontend/internal/checker"
	"github.com/domainaware/checkdmarc-web-frontend/internal/config"
	"github.com/domainaware/checkdmarc-web-frontend/internal/db"
	"github.com/domainaware/checkdmarc-web-frontend/internal/dnsclient"
	"github.com/domainaware/checkdmarc-web-frontend/internal/handlers"
	"github.com/domainaware/checkdmarc-web-frontend/internal/middleware"
	tmplFuncs "github.com/domainaware/checkdmarc-web-frontend/internal/templates"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

const headerCacheControl = "Cache-Control"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	dnsclient.SetUserAgentVersion(cfg.AppVersion)

	// History storage is optional; without DATABASE_URL the app is
	// fully stateless.
	var database *db.Database
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
	} else {
		slog.Info("DATABASE_URL not set, running without check history")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery(cfg.SiteTitle, cfg.AppVersion))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.RequestContext())
	router.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewInMemoryRateLimiter()
	slog.Info("Rate limiter initialized", "backend", "in-memory",
		"max_requests", middleware.RateLimitMaxRequests, "window_seconds", middleware.RateLimitWindow)

	templatesDir := findTemplatesDir()
	tmpl := template.Must(
		template.New("").Funcs(tmplFuncs.FuncMap()).ParseGlob(filepath.Join(templatesDir, "*.html")),
	)
	router.SetHTMLTemplate(tmpl)

	staticDir := findStaticDir()
	fileServer := http.StripPrefix("/static", http.FileServer(http.Dir(staticDir)))
	router.GET("/static/*filepath", func(c *gin.Context) {
		fp := c.Param("filepath")
		if strings.HasSuffix(fp, ".css") || strings.HasSuffix(fp, ".js") ||
			strings.HasSuffix(fp, ".png") || strings.HasSuffix(fp, ".ico") ||
			strings.HasSuffix(fp, ".svg") || strings.HasSuffix(fp, ".webmanifest") {
			if strings.Contains(c.Request.URL.RawQuery, "v=") {
				c.Header(headerCacheControl, "public, max-age=31536000, immutable")
			} else {
				c.Header(headerCacheControl, "public, max-age=86400")
			}
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	})

	chk := checker.New(checker.WithSMTPTLS(cfg.CheckSMTPTLS))
	slog.Info("DNS checker initialized", "smtp_tls_probing", cfg.CheckSMTPTLS)

	homeHandler := handlers.NewHomeHandler(cfg)
	domainHandler := handlers.NewDomainHandler(cfg, chk, database)
	apiHandler := handlers.NewAPIHandler(chk)
	healthHandler := handlers.NewHealthHandler(database)
	staticHandler := handlers.NewStaticHandler(staticDir, cfg.AppVersion, cfg.SiteURL)

	router.GET("/", homeHandler.Index)
	router.POST("/", homeHandler.Submit)
	router.GET("/healthz", healthHandler.HealthCheck)

	router.GET("/robots.txt", staticHandler.RobotsTxt)
	router.GET("/sitemap.xml", staticHandler.SitemapXML)
	router.GET("/manifest.json", staticHandler.ManifestJSON)
	router.GET("/sw.js", staticHandler.ServiceWorker)

	router.GET("/domain/:domain", middleware.CheckRateLimit(rateLimiter), domainHandler.View)
	router.GET("/api/domain/:domain", middleware.CheckRateLimit(rateLimiter), apiHandler.CheckDomain)

	if database != nil {
		historyHandler := handlers.NewHistoryHandler(cfg, database)
		router.GET("/history", historyHandler.Recent)
		router.GET("/api/stats", historyHandler.APIStats)
	}

	router.NoRoute(func(c *gin.Context) {
		nonce, _ := c.Get("csp_nonce")
		c.HTML(http.StatusNotFound, "index.html", gin.H{
			"SiteTitle":  cfg.SiteTitle,
			"AppVersion": cfg.AppVersion,
			"CspNonce":   nonce,
			"FlashMessage": gin.H{
				"Category": "warning",
				"Message":  "That page does not exist.",
			},
		})
	})

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Port)
	slog.Info("Starting server", "address", addr, "version", cfg.AppVersion)

	if err := router.Run(addr); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func findTemplatesDir() string {
	candidates := []string{
		"templates",
		"../templates",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	slog.Warn("Templates directory not found, using default")
	return "templates"
}

func findStaticDir() string {
	candidates := []string{
		"static",
		"../static",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	slog.Warn("Static directory not found, using default")
	return "static"
}

package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	CSPNonceKey contextKey = "csp_nonce"
	TraceIDKey  contextKey = "trace_id"
)

func generateNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// RequestContext attaches a short trace ID and a CSP nonce to every
// request, and logs a completion line with timing.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce := generateNonce()
		traceID := uuid.New().String()[:8]
		start := time.Now()

		c.Set("csp_nonce", nonce)
		c.Set("trace_id", traceID)

		ctx := context.WithValue(c.Request.Context(), CSPNonceKey, nonce)
		ctx = context.WithValue(ctx, TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start)
		slog.Info("Request completed",
			"trace_id", traceID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", fmt.Sprintf("%.1f", float64(duration.Microseconds())/1000.0),
		)
	}
}

// SecurityHeaders sets a nonce-based CSP and the usual hardening headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, _ := c.Get("csp_nonce")
		nonceStr, _ := nonce.(string)

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=(), interest-cohort=()")
		c.Header("Cross-Origin-Opener-Policy", "same-origin")
		c.Header("Cross-Origin-Resource-Policy", "same-origin")

		upgradeDirective := ""
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			upgradeDirective = "upgrade-insecure-requests;"
		}

		csp := fmt.Sprintf(
			"default-src 'none'; "+
				"script-src 'self' 'nonce-%s' https://cdn.jsdelivr.net; "+
				"style-src 'self' 'nonce-%s' https://cdn.jsdelivr.net; "+
				"font-src 'self' https://cdn.jsdelivr.net; "+
				"img-src 'self' data:; "+
				"connect-src 'self'; "+
				"frame-ancestors 'none'; "+
				"base-uri 'none'; "+
				"form-action 'self'; "+
				"manifest-src 'self'; "+
				"worker-src 'self'; "+
				"%s",
			nonceStr, nonceStr, upgradeDirective,
		)
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}

// Recovery renders the home page with an error flash instead of a blank
// 500 when a handler panics.
func Recovery(siteTitle, appVersion string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				traceID, _ := c.Get("trace_id")
				slog.Error("Panic recovered",
					"trace_id", traceID,
					"error", fmt.Sprintf("%v", err),
					"path", c.Request.URL.Path,
				)
				nonce, _ := c.Get("csp_nonce")
				c.HTML(http.StatusInternalServerError, "index.html", gin.H{
					"SiteTitle":  siteTitle,
					"AppVersion": appVersion,
					"CspNonce":   nonce,
					"FlashMessage": gin.H{
						"Category": "danger",
						"Message":  "An internal error occurred. Please try again.",
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterAllowsDistinctDomains(t *testing.T) {
	limiter := NewInMemoryRateLimiter()

	for i := 0; i < RateLimitMaxRequests; i++ {
		result := limiter.CheckAndRecord("192.0.2.1", fmt.Sprintf("domain%d.com", i))
		if !result.Allowed {
			t.Fatalf("request %d should be allowed, got %+v", i, result)
		}
	}

	result := limiter.CheckAndRecord("192.0.2.1", "one-too-many.com")
	if result.Allowed {
		t.Fatal("request over the limit should be rejected")
	}
	if result.Reason != "rate_limit" {
		t.Errorf("reason = %s, want rate_limit", result.Reason)
	}
	if result.WaitSeconds < 1 {
		t.Errorf("WaitSeconds = %d, want >= 1", result.WaitSeconds)
	}
}

func TestRateLimiterAntiRepeat(t *testing.T) {
	limiter := NewInMemoryRateLimiter()

	if r := limiter.CheckAndRecord("192.0.2.2", "example.com"); !r.Allowed {
		t.Fatalf("first request should be allowed, got %+v", r)
	}

	result := limiter.CheckAndRecord("192.0.2.2", "EXAMPLE.com")
	if result.Allowed {
		t.Fatal("repeat of same domain (case-insensitive) should be rejected")
	}
	if result.Reason != "anti_repeat" {
		t.Errorf("reason = %s, want anti_repeat", result.Reason)
	}
}

func TestRateLimiterIsolatesIPs(t *testing.T) {
	limiter := NewInMemoryRateLimiter()

	limiter.CheckAndRecord("192.0.2.3", "example.com")
	if r := limiter.CheckAndRecord("192.0.2.4", "example.com"); !r.Allowed {
		t.Errorf("different IP should not be affected, got %+v", r)
	}
}

func TestCheckRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewInMemoryRateLimiter()
	router := gin.New()
	router.GET("/domain/:domain", CheckRateLimit(limiter), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	first := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/domain/example.com", nil)
	router.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	// Immediate repeat trips the anti-repeat window.
	second := httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/domain/example.com", nil)
	router.ServeHTTP(second, req)
	if second.Code != http.StatusSeeOther {
		t.Fatalf("repeat request status = %d, want 303 redirect", second.Code)
	}

	asJSON := httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/domain/example.com", nil)
	req.Header.Set("Accept", "application/json")
	router.ServeHTTP(asJSON, req)
	if asJSON.Code != http.StatusTooManyRequests {
		t.Fatalf("JSON repeat status = %d, want 429", asJSON.Code)
	}
}

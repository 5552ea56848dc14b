package handlers_test

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/domainaware/checkdmarc-web-frontend/internal/config"
	"github.com/domainaware/checkdmarc-web-frontend/internal/handlers"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		SiteTitle:     "DNS Checkup",
		SiteAuthor:    "Test Author",
		SiteAuthorURL: "https://example.com",
		SiteURL:       "https://checkup.example.com",
		Port:          "5000",
		AppVersion:    "test",
	}
}

func routerWithTemplates(t *testing.T) *gin.Engine {
	t.Helper()
	router := gin.New()
	tmpl := template.Must(template.New("index.html").Parse(
		`{{.SiteTitle}}{{with .FlashMessage}} flash:{{.Message}}{{end}}`))
	template.Must(tmpl.New("domain-not-found.html").Parse(`not found: {{.Domain}} {{.Reason}}`))
	router.SetHTMLTemplate(tmpl)
	return router
}

func TestHomeIndex(t *testing.T) {
	router := routerWithTemplates(t)
	handler := handlers.NewHomeHandler(testConfig())
	router.GET("/", handler.Index)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "DNS Checkup") {
		t.Errorf("body missing site title: %s", w.Body.String())
	}
}

func TestHomeSubmitRedirects(t *testing.T) {
	router := routerWithTemplates(t)
	handler := handlers.NewHomeHandler(testConfig())
	router.POST("/", handler.Submit)

	tests := []struct {
		name         string
		domain       string
		wantLocation string
	}{
		{"plain", "example.com", "/domain/example.com"},
		{"uppercase", "EXAMPLE.COM", "/domain/example.com"},
		{"trailing_dot", "example.com.", "/domain/example.com"},
		{"idn", "bücher.de", "/domain/xn--bcher-kva.de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"domain": {tt.domain}}
			req := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", w.Code)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestHomeSubmitInvalidDomain(t *testing.T) {
	router := routerWithTemplates(t)
	handler := handlers.NewHomeHandler(testConfig())
	router.POST("/", handler.Submit)

	for _, domain := range []string{"", "not a domain", "nodots", "-bad.example.com"} {
		form := url.Values{"domain": {domain}}
		req := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusSeeOther {
			t.Errorf("%q: status = %d, want 303", domain, w.Code)
		}
		if got := w.Header().Get("Location"); got != "/" {
			t.Errorf("%q: Location = %q, want /", domain, got)
		}
	}
}

func TestDomainViewInvalidDomain(t *testing.T) {
	router := routerWithTemplates(t)
	handler := handlers.NewDomainHandler(testConfig(), nil, nil)
	router.GET("/domain/:domain", handler.View)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/domain/%20not%20valid%20", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not found") {
		t.Errorf("expected not-found page, got: %s", w.Body.String())
	}
}

func TestAPICheckDomainInvalid(t *testing.T) {
	router := gin.New()
	handler := handlers.NewAPIHandler(nil)
	router.GET("/api/domain/:domain", handler.CheckDomain)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/domain/bogus", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if response["error"] == nil {
		t.Error("expected error field in response")
	}
}

func TestHealthCheckWithoutDatabase(t *testing.T) {
	router := gin.New()
	handler := handlers.NewHealthHandler(nil)
	router.GET("/healthz", handler.HealthCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("status field = %v, want ok", response["status"])
	}
	database, _ := response["database"].(map[string]interface{})
	if database["status"] != "not configured" {
		t.Errorf("database status = %v, want not configured", database["status"])
	}
}

func TestSitemapXML(t *testing.T) {
	router := gin.New()
	handler := handlers.NewStaticHandler("", "test", "https://checkup.example.com")
	router.GET("/sitemap.xml", handler.SitemapXML)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/sitemap.xml", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("content-type = %s", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<urlset") || !strings.Contains(body, "https://checkup.example.com/") {
		t.Errorf("unexpected sitemap body: %s", body)
	}
}

func TestServiceWorkerVersionInjection(t *testing.T) {
	tempDir := t.TempDir()
	swContent := "var CACHE_NAME = 'checkup-SW_VERSION_PLACEHOLDER';"
	if err := os.WriteFile(filepath.Join(tempDir, "sw.js"), []byte(swContent), 0644); err != nil {
		t.Fatalf("failed to create test sw.js: %v", err)
	}

	router := gin.New()
	handler := handlers.NewStaticHandler(tempDir, "2.1.0", "https://checkup.example.com")
	router.GET("/sw.js", handler.ServiceWorker)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/sw.js", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "checkup-2.1.0") {
		t.Error("expected version-injected cache name")
	}
	if strings.Contains(body, "SW_VERSION_PLACEHOLDER") {
		t.Error("placeholder should be replaced")
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %s", cc)
	}
}

func TestManifestJSON(t *testing.T) {
	tempDir := t.TempDir()
	manifestContent := `{"name":"DNS Checkup","display":"standalone"}`
	if err := os.WriteFile(filepath.Join(tempDir, "manifest.json"), []byte(manifestContent), 0644); err != nil {
		t.Fatalf("failed to create test manifest.json: %v", err)
	}

	router := gin.New()
	handler := handlers.NewStaticHandler(tempDir, "test", "https://checkup.example.com")
	router.GET("/manifest.json", handler.ManifestJSON)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/manifest.json", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/manifest+json" {
		t.Errorf("content-type = %s", ct)
	}

	var manifest map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &manifest); err != nil {
		t.Fatalf("failed to parse manifest JSON: %v", err)
	}
	if manifest["name"] != "DNS Checkup" {
		t.Errorf("manifest name = %v", manifest["name"])
	}
}

func TestManifestIconsPresent(t *testing.T) {
	staticDir := filepath.Join("..", "..", "static")
	data, err := os.ReadFile(filepath.Join(staticDir, "manifest.json"))
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}

	var manifest struct {
		Icons []struct {
			Src string `json:"src"`
		} `json:"icons"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	if len(manifest.Icons) == 0 {
		t.Fatal("manifest declares no icons; browsers refuse install prompts without them")
	}

	for _, icon := range manifest.Icons {
		rel := strings.TrimPrefix(icon.Src, "/static/")
		if _, err := os.Stat(filepath.Join(staticDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("manifest icon %s not found under static/: %v", icon.Src, err)
		}
	}
}

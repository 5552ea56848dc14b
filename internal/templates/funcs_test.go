package templates

import (
	"html/template"
	"strings"
	"testing"
)

func TestStatusBadgeClass(t *testing.T) {
	fn := displayFuncs()["statusBadgeClass"].(func(string) string)

	tests := []struct {
		status string
		want   string
	}{
		{"success", "bg-success"},
		{"SUCCESS", "bg-success"},
		{"warning", "bg-warning"},
		{"error", "bg-danger"},
		{"info", "bg-info"},
		{"n/a", "bg-info"},
		{"unknown", "bg-secondary"},
	}

	for _, tt := range tests {
		if got := fn(tt.status); got != tt.want {
			t.Errorf("statusBadgeClass(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	fn := dateTimeFuncs()["formatDuration"].(func(interface{}) string)

	if got := fn(float64(0.234)); got != "234ms" {
		t.Errorf("formatDuration(0.234) = %q, want 234ms", got)
	}
	if got := fn(float64(2.5)); got != "2.5s" {
		t.Errorf("formatDuration(2.5) = %q, want 2.5s", got)
	}
}

func TestMapGetHelpers(t *testing.T) {
	m := map[string]interface{}{
		"status": "success",
		"flag":   true,
		"nested": map[string]interface{}{"k": "v"},
		"items":  []string{"a", "b"},
	}

	funcs := mapFuncs()

	if got := funcs["mapGetStr"].(func(string, map[string]interface{}) string)("status", m); got != "success" {
		t.Errorf("mapGetStr = %q", got)
	}
	if !funcs["mapGetBool"].(func(string, map[string]interface{}) bool)("flag", m) {
		t.Error("mapGetBool should be true")
	}
	if got := funcs["mapGetMap"].(func(string, map[string]interface{}) map[string]interface{})("nested", m); got["k"] != "v" {
		t.Errorf("mapGetMap = %v", got)
	}
	if got := funcs["mapGetSlice"].(func(string, map[string]interface{}) []interface{})("items", m); len(got) != 2 {
		t.Errorf("mapGetSlice = %v", got)
	}
	if got := funcs["mapGetStr"].(func(string, map[string]interface{}) string)("missing", nil); got != "" {
		t.Errorf("nil map should give empty string, got %q", got)
	}
}

func TestTemplateRenderWithFuncMap(t *testing.T) {
	tmpl := template.Must(template.New("test").Funcs(FuncMap()).Parse(
		`<span class="{{statusBadgeClass (mapGetStr "status" .Result)}}">` +
			`{{mapGetStr "message" .Result}}</span> {{linkRFC .Note}}`,
	))

	var buf strings.Builder
	err := tmpl.Execute(&buf, map[string]interface{}{
		"Result": map[string]interface{}{"status": "warning", "message": "No SPF record found"},
		"Note":   "See RFC 7208",
	})
	if err != nil {
		t.Fatalf("template execution failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "bg-warning") {
		t.Errorf("missing badge class: %s", out)
	}
	if !strings.Contains(out, "rfc7208") {
		t.Errorf("missing RFC link: %s", out)
	}
}

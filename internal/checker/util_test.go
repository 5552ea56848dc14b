package checker

import (
	"errors"
	"reflect"
	"testing"
)

func TestEnsureStringSlices(t *testing.T) {
	var nilSlice []string
	m := map[string]any{
		"nil_slice": nilSlice,
		"missing":   nil,
		"populated": []string{"a"},
		"other":     42,
	}

	ensureStringSlices(m, "nil_slice", "missing", "populated", "other", "absent")

	if got := m["nil_slice"].([]string); got == nil || len(got) != 0 {
		t.Errorf("nil_slice = %v, want []", got)
	}
	if got := m["missing"].([]string); got == nil {
		t.Errorf("missing = %v, want []", got)
	}
	if got := m["absent"].([]string); got == nil {
		t.Errorf("absent key should become [], got %v", got)
	}
	if !reflect.DeepEqual(m["populated"], []string{"a"}) {
		t.Errorf("populated slice should be untouched, got %v", m["populated"])
	}
	if m["other"] != 42 {
		t.Errorf("non-slice value should be untouched, got %v", m["other"])
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"tls", errors.New("tls: handshake failure"), "SSL certificate error"},
		{"cert", errors.New("x509: certificate signed by unknown authority"), "SSL certificate error"},
		{"dial", errors.New("dial tcp 192.0.2.1:443: connect: refused"), "Connection failed"},
		{"timeout", errors.New("context deadline exceeded"), "Timeout"},
		{"passthrough", errors.New("something else"), "something else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyHTTPError(tt.err); got != tt.want {
				t.Errorf("classifyHTTPError = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUniqueStrings(t *testing.T) {
	got := uniqueStrings([]string{"a", "b", "a", "c", "b"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("uniqueStrings = %v", got)
	}
}

func TestGetHelpers(t *testing.T) {
	m := map[string]any{
		"s": "value",
		"b": true,
	}

	if getStr(m, "s") != "value" || getStr(m, "b") != "" || getStr(m, "nope") != "" {
		t.Error("getStr mismatch")
	}
	if !getBool(m, "b") || getBool(m, "s") || getBool(m, "nope") {
		t.Error("getBool mismatch")
	}
}

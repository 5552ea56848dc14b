package templates

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

func FuncMap() template.FuncMap {
	m := template.FuncMap{}
	mergeFuncs(m, dateTimeFuncs())
	mergeFuncs(m, mapFuncs())
	mergeFuncs(m, displayFuncs())
	return m
}

func mergeFuncs(dst, src template.FuncMap) {
	for k, v := range src {
		dst[k] = v
	}
}

func dateTimeFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t interface{}) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("Jan 02, 2006 15:04 UTC")
			case string:
				return v
			default:
				return fmt.Sprintf("%v", t)
			}
		},
		"formatDuration": func(d interface{}) string {
			switch v := d.(type) {
			case float64:
				if v < 1.0 {
					return fmt.Sprintf("%.0fms", v*1000)
				}
				return fmt.Sprintf("%.1fs", v)
			case float32:
				return fmt.Sprintf("%.1fs", v)
			default:
				return fmt.Sprintf("%v", d)
			}
		},
	}
}

func mapFuncs() template.FuncMap {
	return template.FuncMap{
		"mapGetStr": func(key string, m map[string]interface{}) string {
			if m == nil {
				return ""
			}
			v, ok := m[key]
			if !ok || v == nil {
				return ""
			}
			s, ok := v.(string)
			if !ok {
				return fmt.Sprintf("%v", v)
			}
			return s
		},
		"mapGetBool": func(key string, m map[string]interface{}) bool {
			if m == nil {
				return false
			}
			v, ok := m[key]
			if !ok || v == nil {
				return false
			}
			b, ok := v.(bool)
			return ok && b
		},
		"mapGetMap": func(key string, m map[string]interface{}) map[string]interface{} {
			if m == nil {
				return nil
			}
			v, ok := m[key]
			if !ok || v == nil {
				return nil
			}
			sub, ok := v.(map[string]interface{})
			if !ok {
				return nil
			}
			return sub
		},
		"mapGetSlice": func(key string, m map[string]interface{}) []interface{} {
			if m == nil {
				return nil
			}
			v, ok := m[key]
			if !ok || v == nil {
				return nil
			}
			switch s := v.(type) {
			case []interface{}:
				return s
			case []string:
				result := make([]interface{}, len(s))
				for i, str := range s {
					result[i] = str
				}
				return result
			case []map[string]interface{}:
				result := make([]interface{}, len(s))
				for i, m := range s {
					result[i] = m
				}
				return result
			default:
				return nil
			}
		},
	}
}

func displayFuncs() template.FuncMap {
	return template.FuncMap{
		"statusBadgeClass": func(status string) string {
			switch strings.ToLower(status) {
			case "success":
				return "bg-success"
			case "warning":
				return "bg-warning"
			case "info", "n/a":
				return "bg-info"
			case "danger", "error", "critical":
				return "bg-danger"
			default:
				return "bg-secondary"
			}
		},
		"linkRFC": LinkRFC,
		"dictSection": func(title string, result map[string]interface{}) map[string]interface{} {
			return map[string]interface{}{"Title": title, "Result": result}
		},
		"recordTypes": func() []string {
			return []string{"A", "AAAA", "MX", "TXT", "NS", "CNAME", "CAA", "SOA"}
		},
		"toStr": func(v interface{}) string {
			if v == nil {
				return ""
			}
			s, ok := v.(string)
			if ok {
				return s
			}
			return fmt.Sprintf("%v", v)
		},
		"staticVersionURL": func(path, version string) string {
			return "/static/" + path + "?v=" + version
		},
	}
}

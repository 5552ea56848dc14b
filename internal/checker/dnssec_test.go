package checker

import "testing"

func TestParseDSAlgorithm(t *testing.T) {
	tests := []struct {
		name     string
		records  []string
		wantNum  int
		wantName string
		wantNil  bool
	}{
		{"ecdsa", []string{"2371 13 2 abcdef0123456789"}, 13, "ECDSA P-256/SHA-256", false},
		{"rsa_sha256", []string{"12345 8 2 deadbeef"}, 8, "RSA/SHA-256", false},
		{"unknown_algo", []string{"1 99 2 cafe"}, 99, "Algorithm 99", false},
		{"empty", nil, 0, "", true},
		{"short_record", []string{"2371"}, 0, "", true},
		{"non_numeric", []string{"2371 abc 2 cafe"}, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			num, name := parseDSAlgorithm(tt.records)
			if tt.wantNil {
				if num != nil || name != nil {
					t.Errorf("expected nil, got %v %v", num, name)
				}
				return
			}
			if num == nil || *num != tt.wantNum {
				t.Errorf("algorithm = %v, want %d", num, tt.wantNum)
			}
			if name == nil || *name != tt.wantName {
				t.Errorf("name = %v, want %s", name, tt.wantName)
			}
		})
	}
}

func TestCapRecords(t *testing.T) {
	records := []string{"short", "this record is definitely longer than ten characters"}

	capped := capRecords(records, 1, 0)
	if len(capped) != 1 {
		t.Errorf("limit 1 should keep one record, got %v", capped)
	}

	capped = capRecords(records, 5, 10)
	if len(capped) != 2 {
		t.Fatalf("expected 2 records, got %d", len(capped))
	}
	if capped[0] != "short" {
		t.Errorf("short record should be untouched, got %q", capped[0])
	}
	if capped[1] != "this recor..." {
		t.Errorf("long record should be truncated, got %q", capped[1])
	}

	// maxLen 0 means no truncation
	capped = capRecords(records, 5, 0)
	if capped[1] != records[1] {
		t.Errorf("maxLen 0 should not truncate, got %q", capped[1])
	}
}

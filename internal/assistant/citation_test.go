package assistant

import "testing"

func TestNewCitationDomain(t *testing.T) {
	tests := []struct {
		url    string
		domain string
	}{
		{"https://www.allrecipes.com/recipe/1", "www.allrecipes.com"},
		{"https://seriouseats.com/carbonara", "seriouseats.com"},
		{"http://food.com:8080/x", "food.com"},
		{"", ""},
		{"not a url at all", ""},
	}

	for _, tt := range tests {
		c := NewCitation("t", tt.url, "")
		if c.Domain != tt.domain {
			t.Errorf("NewCitation(%q).Domain = %q, want %q", tt.url, c.Domain, tt.domain)
		}
	}
}

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
)

func TestSiteIdentity(t *testing.T) {
	tests := []struct {
		url    string
		domain string
		name   string
	}{
		{"https://example.com/a", "example.com", "example"},
		{"http://www.example.com:8080/a?b=c", "example.com", "example"},
		{"https://WWW.Example.COM", "example.com", "example"},
		{"https://en.wikipedia.org/wiki/Go", "en.wikipedia.org", "wikipedia"},
		{"https://news.bbc.co.uk/", "news.bbc.co.uk", "bbc"},
		{"http://localhost:3000/", "localhost", "localhost"},
		{"http://127.0.0.1:8080/x", "127.0.0.1", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			site, err := SiteIdentity(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.domain, site.Domain)
			assert.Equal(t, tt.name, site.Name)
		})
	}
}

func TestSiteIdentity_Invalid(t *testing.T) {
	for _, in := range []string{"", "not a url", "mailto:a@b.c"} {
		_, err := SiteIdentity(in)
		assert.ErrorIs(t, err, apperror.ErrValidation, "input %q", in)
	}
}

func TestChooseURL(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name      string
		submitted string
		canonical *string
		want      string
	}{
		{"no canonical", "https://example.com/a?utm=1", nil, "https://example.com/a?utm=1"},
		{"empty canonical", "https://example.com/a", ptr(""), "https://example.com/a"},
		{"same host", "https://example.com/a?utm=1", ptr("https://example.com/a"), "https://example.com/a"},
		{"www and case ignored", "https://Example.com/a", ptr("https://www.example.com/a"), "https://www.example.com/a"},
		{"same path still canonical", "https://example.com/a", ptr("http://example.com/a"), "http://example.com/a"},
		{"different host", "https://example.com/a", ptr("https://other.com/a"), "https://example.com/a"},
		{"subdomain differs", "https://example.com/a", ptr("https://m.example.com/a"), "https://example.com/a"},
		{"not http", "https://example.com/a", ptr("ftp://example.com/a"), "https://example.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseURL(tt.submitted, tt.canonical))
		})
	}
}

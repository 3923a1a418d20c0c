// api/utils/helpers_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePageURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/blog", "/blog"},
		{"/blog/", "/blog"},
		{"/blog?utm_source=twitter", "/blog"},
		{"/blog/#comments", "/blog"},
		{"/blog/post-1/?ref=home#top", "/blog/post-1"},
		{"https://example.com/projects/", "https://example.com/projects"},
		{"https://example.com", "https://example.com/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePageURL(tc.in), "input %q", tc.in)
	}
}

// api/utils/helpers.go
package utils

import (
	"net/url"
	"strings"
)

// NormalizePageURL canonicalizes page URLs before they are grouped, so that
// "/blog", "/blog/" and "/blog?ref=x" count as one page. Query strings and
// fragments are dropped and trailing slashes trimmed, except for the root
// path. Unparseable input is returned as-is rather than rejected.
func NormalizePageURL(raw string) string {
	if raw == "" {
		return "/"
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	if u.Host != "" {
		return u.Scheme + "://" + u.Host + path
	}
	return path
}

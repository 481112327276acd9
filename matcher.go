package apigate

import (
	"net/url"
	"sort"
	"strings"
)

// inScope reports whether u matches any of the glob-style patterns.
// Matching is performed against host + path of the URL.
//
// Supported patterns:
//   - "api.example.com/*" matches any path on that host
//   - "api.example.com/v3/lk/*" matches only paths under /v3/lk
//   - "api.example.com/v3/lk/documents/create" exact match
func inScope(u *url.URL, patterns []string) bool {
	hostPath := strings.TrimRight(u.Host+u.Path, "/")
	for _, p := range patterns {
		if globMatch(strings.TrimRight(p, "/"), hostPath) {
			return true
		}
	}
	return false
}

// scopeOf derives one "host/*" pattern per distinct host in the endpoint
// table.
func scopeOf(endpoints map[string]string) []string {
	seen := make(map[string]bool)
	var patterns []string
	for _, raw := range endpoints {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		patterns = append(patterns, u.Host+"/*")
	}
	sort.Strings(patterns)
	return patterns
}

// globMatch performs simple glob matching where "*" matches any sequence of
// characters and a trailing "/*" also matches the bare prefix.
func globMatch(pattern, value string) bool {
	if pattern == value {
		return true
	}

	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if value == prefix || strings.HasPrefix(value, prefix+"/") {
			return true
		}
	}

	return wildcardMatch(pattern, value)
}

func wildcardMatch(pattern, str string) bool {
	for len(pattern) > 0 {
		if pattern[0] != '*' {
			if len(str) == 0 || pattern[0] != str[0] {
				return false
			}
			pattern, str = pattern[1:], str[1:]
			continue
		}

		pattern = pattern[1:]
		if len(pattern) == 0 {
			return true
		}
		for i := 0; i <= len(str); i++ {
			if wildcardMatch(pattern, str[i:]) {
				return true
			}
		}
		return false
	}

	return len(str) == 0
}

// Package urlutil provides URL joining and normalization for responses.
package urlutil

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var repeatedSlashes = regexp.MustCompile(`/+`)

// Normalizer turns equivalent URLs into one archive key.
type Normalizer struct {
	// Query parameters to remove (utm_*, gclid, etc.)
	IgnoreParams map[string]struct{}

	RemoveTrailingSlash bool

	// Remove default ports (80 for http, 443 for https)
	RemoveDefaultPort bool

	RemoveFragment bool

	LowercaseSchemeHost bool

	SortQueryParams bool
}

// DefaultNormalizer returns a normalizer with default settings.
func DefaultNormalizer(ignoreParams []string) *Normalizer {
	params := make(map[string]struct{})
	for _, p := range ignoreParams {
		params[strings.ToLower(p)] = struct{}{}
	}

	return &Normalizer{
		IgnoreParams:        params,
		RemoveTrailingSlash: true,
		RemoveDefaultPort:   true,
		RemoveFragment:      true,
		LowercaseSchemeHost: true,
		SortQueryParams:     true,
	}
}

// Normalize normalizes a URL string.
func (n *Normalizer) Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	if n.LowercaseSchemeHost {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
	}

	if n.RemoveDefaultPort {
		host := u.Host
		if u.Scheme == "http" && strings.HasSuffix(host, ":80") {
			u.Host = strings.TrimSuffix(host, ":80")
		} else if u.Scheme == "https" && strings.HasSuffix(host, ":443") {
			u.Host = strings.TrimSuffix(host, ":443")
		}
	}

	if n.RemoveFragment {
		u.Fragment = ""
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	// root keeps its slash
	if n.RemoveTrailingSlash && len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	u.Path = normalizePath(path)
	u.RawPath = ""

	if u.RawQuery != "" {
		query := u.Query()
		kept := url.Values{}

		for key, values := range query {
			if _, ignore := n.IgnoreParams[strings.ToLower(key)]; ignore {
				continue
			}
			for _, v := range values {
				if v != "" || len(values) == 1 {
					kept.Add(key, v)
				}
			}
		}

		if n.SortQueryParams {
			u.RawQuery = sortedQueryString(kept)
		} else {
			u.RawQuery = kept.Encode()
		}
	}

	return u.String(), nil
}

// normalizePath collapses repeated slashes and resolves . and ..
func normalizePath(path string) string {
	path = repeatedSlashes.ReplaceAllString(path, "/")

	var result []string
	for _, part := range strings.Split(path, "/") {
		switch part {
		case ".":
		case "..":
			if len(result) > 0 && result[len(result)-1] != "" {
				result = result[:len(result)-1]
			}
		default:
			result = append(result, part)
		}
	}

	normalized := strings.Join(result, "/")
	if normalized == "" {
		return "/"
	}
	return normalized
}

func sortedQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		values := query[k]
		sort.Strings(values)
		for _, v := range values {
			if v == "" {
				parts = append(parts, url.QueryEscape(k))
			} else {
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
	}

	return strings.Join(parts, "&")
}

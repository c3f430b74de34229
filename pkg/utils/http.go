// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"net/url"
	"strings"
)

// UserAgent is sent with every outbound request.
const UserAgent = "wxdraft/1.0"

// IsRemoteURL reports whether source is an absolute http(s) URL.
func IsRemoteURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(u.Scheme)

	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// ForceHTTPS rewrites a leading http:// to https://.
func ForceHTTPS(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") {
		return "https://" + strings.TrimPrefix(rawURL, "http://")
	}

	return rawURL
}

// ApplyHeaders sets default headers on req, then the custom ones.
func ApplyHeaders(req *http.Request, customHeaders map[string]string) {
	req.Header.Set("User-Agent", UserAgent)

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, */*")
	}

	for key, value := range customHeaders {
		req.Header.Set(key, value)
	}
}

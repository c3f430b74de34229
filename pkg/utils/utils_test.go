package utils

import (
	"net/http"
	"strings"
	"testing"
)

func TestIsRemoteURL(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"https://mmbiz.qpic.cn/a.jpg", true},
		{"http://example.com/x.png", true},
		{"HTTPS://example.com/x.png", true},
		{"local.jpg", false},
		{"/Users/me/article/a.png", false},
		{"./img/a.png", false},
		{"ftp://example.com/a.png", false},
		{"http://", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsRemoteURL(tt.input); got != tt.expected {
				t.Errorf("IsRemoteURL(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestForceHTTPS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://x/y", "https://x/y"},
		{"https://x/y", "https://x/y"},
		{"", ""},
		{"ftp://x/http://y", "ftp://x/http://y"},
	}

	for _, tt := range tests {
		if got := ForceHTTPS(tt.input); got != tt.expected {
			t.Errorf("ForceHTTPS(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestApplyHeaders(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}

	ApplyHeaders(req, map[string]string{"Content-Type": "application/json"})

	if req.Header.Get("User-Agent") != UserAgent {
		t.Errorf("Expected User-Agent %q, got %q", UserAgent, req.Header.Get("User-Agent"))
	}

	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Expected custom header, got %q", req.Header.Get("Content-Type"))
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("短文本", 10); got != "短文本" {
		t.Errorf("Expected short string unchanged, got %q", got)
	}

	if got := TruncateString("微信公众号草稿", 4); got != "微信公众..." {
		t.Errorf("Expected rune-aware truncation, got %q", got)
	}
}

func TestPreview(t *testing.T) {
	body := []byte("{\n  \"errcode\": 40001,\n  \"errmsg\": \"invalid credential\"\n}" + strings.Repeat(" x", 300))

	got := Preview(body)
	if strings.Contains(got, "\n") {
		t.Errorf("Expected single line preview, got %q", got)
	}

	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected long preview to be truncated, got %q", got)
	}
}

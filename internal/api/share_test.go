package api

import (
	"net/http/httptest"
	"testing"

	"github.com/webdesk/webdesk/internal/config"
)

func TestShareURL(t *testing.T) {
	s := &Server{config: &config.Config{}}

	req := httptest.NewRequest("POST", "http://files.example.com/api/v1/share/create", nil)
	url := s.shareURL(req, "abc123")
	if url != "http://files.example.com/api/v1/share/abc123" {
		t.Errorf("url = %q", url)
	}

	s.config.ShareBaseURL = "https://share.example.com/"
	url = s.shareURL(req, "abc123")
	if url != "https://share.example.com/api/v1/share/abc123" {
		t.Errorf("configured base url = %q", url)
	}
}

func TestSharePassword(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/share/tok?password=fromquery", nil)
	if p := sharePassword(req); p != "fromquery" {
		t.Errorf("password = %q", p)
	}

	req = httptest.NewRequest("GET", "/api/v1/share/tok", nil)
	req.Header.Set("X-Share-Password", "fromheader")
	if p := sharePassword(req); p != "fromheader" {
		t.Errorf("password = %q", p)
	}

	req = httptest.NewRequest("GET", "/api/v1/share/tok", nil)
	if p := sharePassword(req); p != "" {
		t.Errorf("password = %q, want empty", p)
	}
}

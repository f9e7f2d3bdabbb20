package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderVerificationTemplate(t *testing.T) {
	data := VerificationData{
		AppName:         "Atelier",
		UserName:        "Test User",
		VerificationURL: "https://example.com/verify?token=abc123",
	}

	html, err := renderTemplate(verificationEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Atelier") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Test User") {
		t.Error("template should contain user name")
	}
	if !strings.Contains(html, "https://example.com/verify?token=abc123") {
		t.Error("template should contain verification URL")
	}
}

func TestRenderVersionSentTemplate(t *testing.T) {
	data := VersionSentData{
		AppName:    "Atelier",
		UserName:   "Test Client",
		Document:   "Proposal v3",
		ReviewURL:  "https://example.com/orders/ord_1/versions/3",
		GrandTotal: "$157.07",
	}

	html, err := renderTemplate(versionSentEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Proposal v3") {
		t.Error("template should contain the document name")
	}
	if !strings.Contains(html, "$157.07") {
		t.Error("template should contain the grand total")
	}
	if !strings.Contains(html, "https://example.com/orders/ord_1/versions/3") {
		t.Error("template should contain the review URL")
	}
}

func TestRenderMilestoneTemplate(t *testing.T) {
	data := MilestoneData{
		AppName:   "Atelier",
		UserName:  "Test Client",
		Milestone: "Production started",
	}

	html, err := renderTemplate(milestoneEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Production started") {
		t.Error("template should contain the milestone title")
	}
	if !strings.Contains(html, "Test Client") {
		t.Error("template should contain the user name")
	}
}

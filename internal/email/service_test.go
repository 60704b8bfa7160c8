package email

import (
	"testing"
	"time"
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
				From: "board@example.com",
				To:   "mods@example.com",
			},
			expected: false,
		},
		{
			name: "missing moderators alias",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "board@example.com",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "board@example.com",
				To:   "mods@example.com",
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

func TestNotifyReportedRequiresConfig(t *testing.T) {
	svc := NewService(Config{})
	err := svc.NotifyReported(ReportNotice{
		PostID:     "post-1",
		PostTitle:  "title",
		ReportedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error when email is unconfigured")
	}
}

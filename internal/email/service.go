// Package email notifies moderators about newly reported posts via SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Config holds SMTP configuration. Email is disabled when Host is empty.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// To is the moderators' alias that receives report notifications.
	To string
}

type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if report notifications can be sent.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && s.config.To != ""
}

// ReportNotice describes a post that just entered the reported state.
type ReportNotice struct {
	PostID      string
	PostTitle   string
	Category    string
	ReportCount int
	ReportedAt  time.Time
}

// NotifyReported mails the moderators' alias about a reported post.
func (s *Service) NotifyReported(notice ReportNotice) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	subject := fmt.Sprintf("[breakroom] post reported: %s", notice.PostTitle)
	body := fmt.Sprintf(
		"A post on the community board has been reported.\n\n"+
			"Title:    %s\n"+
			"Category: %s\n"+
			"Post ID:  %s\n"+
			"Reports:  %d\n"+
			"Filed at: %s\n\n"+
			"Review it in the moderation queue.\n",
		notice.PostTitle,
		notice.Category,
		notice.PostID,
		notice.ReportCount,
		notice.ReportedAt.Format(time.RFC1123),
	)

	return s.send([]string{s.config.To}, subject, body)
}

func (s *Service) send(to []string, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		s.config.From,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

package Models

import (
	"gorm.io/gorm"
)

// SmtpConfig is the stored outbound mail configuration. Only one row
// may be active; SaveSmtpConfig deactivates the rest inside the same
// transaction.
type SmtpConfig struct {
	gorm.Model
	Host      string `json:"host" gorm:"not null"`
	Port      int    `json:"port" gorm:"not null"`
	Secure    bool   `json:"secure"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	Active    bool   `json:"active" gorm:"index"`
}

// ToEmailConfig maps the stored row onto the sender's configuration.
func (s *SmtpConfig) ToEmailConfig() EmailConfig {
	return EmailConfig{
		SMTPServer: s.Host,
		SMTPPort:   s.Port,
		Username:   s.Username,
		Password:   s.Password,
		FromEmail:  s.FromEmail,
		FromName:   s.FromName,
		TLSEnabled: s.Secure,
	}
}

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog records every send attempt. It is written by the dispatcher
// and never read back by business logic.
type EmailLog struct {
	gorm.Model
	Recipient    string `json:"recipient"`
	Subject      string `json:"subject"`
	Status       string `json:"status" gorm:"index"`
	ErrorMessage string `json:"error_message"`
}

type EmailConfig struct {
	SMTPServer   string
	SMTPPort     int
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	TLSEnabled   bool
	SkipTLSCheck bool
}

// EmailMessage represents an email to be sent
type EmailMessage struct {
	To      []string
	CC      []string
	BCC     []string
	Subject string
	Body    string
	IsHTML  bool
}

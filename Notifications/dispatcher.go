package Notifications

import (
	"Diligent/Models"
	"Diligent/email"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

var ErrNoActiveConfig = errors.New("no active SMTP configuration")

// Dispatcher sends best-effort transactional email. Every attempt is
// logged to the email_logs table; a failed send is terminal and only
// visible there. Callers must never let a dispatch failure abort the
// triggering operation.
type Dispatcher struct {
	DB   *gorm.DB
	Send func(Models.EmailConfig, Models.EmailMessage) error
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{DB: db, Send: email.SendEmail}
}

// ActiveConfig returns the single active SMTP configuration.
func (d *Dispatcher) ActiveConfig() (Models.SmtpConfig, error) {
	var config Models.SmtpConfig
	result := d.DB.Where("active = ?", true).Order("updated_at DESC").First(&config)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return config, ErrNoActiveConfig
		}
		return config, result.Error
	}
	return config, nil
}

// Notify sends one message per recipient and logs each attempt.
func (d *Dispatcher) Notify(recipients []string, subject, body string) {
	config, err := d.ActiveConfig()
	if err != nil {
		log.Printf("Notification skipped (%s): %v\n", subject, err)
		for _, recipient := range recipients {
			d.logAttempt(recipient, subject, Models.EmailStatusFailed, err)
		}
		return
	}

	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}

		sendErr := d.Send(config.ToEmailConfig(), Models.EmailMessage{
			To:      []string{recipient},
			Subject: subject,
			Body:    body,
			IsHTML:  true,
		})

		if sendErr != nil {
			log.Printf("Failed to send %q to %s: %v\n", subject, recipient, sendErr)
			d.logAttempt(recipient, subject, Models.EmailStatusFailed, sendErr)
		} else {
			d.logAttempt(recipient, subject, Models.EmailStatusSent, nil)
		}
	}
}

func (d *Dispatcher) logAttempt(recipient, subject, status string, sendErr error) {
	entry := Models.EmailLog{
		Recipient: recipient,
		Subject:   subject,
		Status:    status,
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}

	if err := d.DB.Create(&entry).Error; err != nil {
		log.Printf("Failed to write email log for %s: %v\n", recipient, err)
	}
}

// NotifyCreated tells every recipient a diligence was assigned to them.
func (d *Dispatcher) NotifyCreated(diligence *Models.Diligence, creator *Models.User) {
	d.Notify(recipientEmails(diligence),
		fmt.Sprintf("New diligence: %s", diligence.Title),
		fmt.Sprintf("<p>%s assigned you a new diligence.</p><p><b>%s</b><br>Priority: %s<br>Due: %s</p>",
			creator.Name, diligence.Title, diligence.Priority, diligence.EndDate))
}

// NotifySubmitted tells the creator a recipient submitted work for
// validation.
func (d *Dispatcher) NotifySubmitted(diligence *Models.Diligence, creator *Models.User, submitter *Models.User, traitement *Models.DiligenceTraitement) {
	d.Notify([]string{creator.Email},
		fmt.Sprintf("Submission on diligence: %s", diligence.Title),
		fmt.Sprintf("<p>%s submitted work on <b>%s</b> (%d%% complete).</p><p>%s</p>",
			submitter.Name, diligence.Title, traitement.Progression, traitement.Comment))
}

// NotifyRejected tells every recipient the creator rejected the work.
func (d *Dispatcher) NotifyRejected(diligence *Models.Diligence, comment string) {
	d.Notify(recipientEmails(diligence),
		fmt.Sprintf("Diligence returned: %s", diligence.Title),
		fmt.Sprintf("<p>The submission on <b>%s</b> was rejected and the diligence is back in progress.</p><p>%s</p>",
			diligence.Title, comment))
}

// NotifyCompleted tells every recipient the diligence was approved.
func (d *Dispatcher) NotifyCompleted(diligence *Models.Diligence) {
	d.Notify(recipientEmails(diligence),
		fmt.Sprintf("Diligence completed: %s", diligence.Title),
		fmt.Sprintf("<p><b>%s</b> was validated and marked as done.</p>", diligence.Title))
}

func recipientEmails(diligence *Models.Diligence) []string {
	emails := make([]string, 0, len(diligence.Recipients))
	for _, recipient := range diligence.Recipients {
		if recipient.Email != "" {
			emails = append(emails, recipient.Email)
		}
	}
	return emails
}

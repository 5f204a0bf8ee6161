package email

import (
	"Diligent/Models"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SendEmail delivers one message using the given configuration. TLS
// configs get an implicit-TLS connection; otherwise plain SMTP with
// whatever STARTTLS the server negotiates via smtp.SendMail.
func SendEmail(config Models.EmailConfig, message Models.EmailMessage) error {
	recipients := make([]string, 0, len(message.To)+len(message.CC)+len(message.BCC))
	recipients = append(recipients, message.To...)
	recipients = append(recipients, message.CC...)
	recipients = append(recipients, message.BCC...)

	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	body := buildMessage(config, message)
	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)
	serverAddr := fmt.Sprintf("%s:%d", config.SMTPServer, config.SMTPPort)

	if config.TLSEnabled {
		return sendWithTLS(config, serverAddr, auth, recipients, body)
	}

	return smtp.SendMail(serverAddr, auth, config.FromEmail, recipients, []byte(body))
}

// TestConnection dials the configured server and authenticates without
// sending anything. Used by the SMTP config test endpoint.
func TestConnection(config Models.EmailConfig) error {
	serverAddr := fmt.Sprintf("%s:%d", config.SMTPServer, config.SMTPPort)
	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)

	if config.TLSEnabled {
		conn, err := tls.Dial("tcp", serverAddr, &tls.Config{
			ServerName:         config.SMTPServer,
			InsecureSkipVerify: config.SkipTLSCheck,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %v", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, config.SMTPServer)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %v", err)
		}
		defer client.Close()

		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %v", err)
		}

		return client.Quit()
	}

	client, err := smtp.Dial(serverAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %v", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err = client.StartTLS(&tls.Config{
			ServerName:         config.SMTPServer,
			InsecureSkipVerify: config.SkipTLSCheck,
		}); err != nil {
			return fmt.Errorf("STARTTLS failed: %v", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok && config.Username != "" {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %v", err)
		}
	}

	return client.Quit()
}

func buildMessage(config Models.EmailConfig, message Models.EmailMessage) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", config.FromName, config.FromEmail))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(message.To, ", ")))
	if len(message.CC) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(message.CC, ", ")))
	}
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", message.Subject))

	if message.IsHTML {
		b.WriteString("MIME-Version: 1.0\r\n")
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}

	b.WriteString("\r\n")
	b.WriteString(message.Body)

	return b.String()
}

func sendWithTLS(config Models.EmailConfig, serverAddr string, auth smtp.Auth, recipients []string, body string) error {
	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{
		ServerName:         config.SMTPServer,
		InsecureSkipVerify: config.SkipTLSCheck,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %v", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %v", err)
	}

	if err = client.Mail(config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %v", err)
	}

	for _, recipient := range recipients {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient %s: %v", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %v", err)
	}

	if _, err = w.Write([]byte(body)); err != nil {
		return fmt.Errorf("failed to write email body: %v", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %v", err)
	}

	return client.Quit()
}

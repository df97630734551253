package email

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/config"
	mail "github.com/xhit/go-simple-mail/v2"
)

// NotificationService emails the configured recipients about new submissions.
type NotificationService struct {
	config *config.EmailConfig
}

// Field is one labelled value of a submission.
type Field struct {
	Label string
	Value string
}

// NewApplication is the content of a new application email.
type NewApplication struct {
	Form         string
	Name         string
	Fields       []Field
	SubmittedAt  time.Time
	DashboardURL string
}

func New(cfg *config.EmailConfig) *NotificationService {
	return &NotificationService{
		config: cfg,
	}
}

// Enabled reports whether emails will be sent.
func (n *NotificationService) Enabled() bool {
	return n.config != nil && n.config.Enabled && len(n.config.NotifyTo) > 0
}

// SendNewApplication emails every recipient in notify_to.
func (n *NotificationService) SendNewApplication(app NewApplication) error {
	if !n.Enabled() {
		log.Debug("Email notifications are disabled, skipping notification")
		return nil
	}

	subject := fmt.Sprintf("[Midnight Club] New %s from %s", app.Form, app.Name)
	body, err := n.generateEmailBody(app)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return n.sendEmail(n.config.NotifyTo, subject, body)
}

//go:embed templates/*.html
var templatesFS embed.FS

var emailTemplates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

func (n *NotificationService) generateEmailBody(app NewApplication) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, "new_application.html", app); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *NotificationService) sendEmail(to []string, subject, body string) error {
	server := mail.NewSMTPClient()
	server.Host = n.config.SMTPHost
	server.Port = n.config.SMTPPort
	server.Username = n.config.Username
	server.Password = n.config.Password

	switch {
	case n.config.UseSSL:
		server.Encryption = mail.EncryptionSSLTLS
	case n.config.UseTLS:
		server.Encryption = mail.EncryptionSTARTTLS
	default:
		server.Encryption = mail.EncryptionNone
	}

	if n.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := smtpClient.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	fromName := n.config.FromName
	if fromName == "" {
		fromName = "Midnight Club"
	}

	email := mail.NewMSG()
	email.SetFrom(fmt.Sprintf("%s <%s>", fromName, n.config.FromEmail))
	email.AddTo(to...)
	email.SetSubject(subject)
	email.SetBody(mail.TextHTML, body)

	if err := email.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("Email notification sent", "recipients", len(to), "subject", subject)
	return nil
}

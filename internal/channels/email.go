package channels

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// SMTPSender delivers outbound email through an SMTP relay
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// Ensure SMTPSender implements EmailSender
var _ EmailSender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTP email sender
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendEmail sends body to recipients with the given subject. The body is
// wrapped in a minimal HTML layout with a plain-text alternative.
func (s *SMTPSender) SendEmail(ctx context.Context, recipients []string, subject, body string) error {
	if s.host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	htmlBody, err := buildEmailHTML(subject, body)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	// gomail has no context support; honor cancellation before dialing
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func buildEmailHTML(subject, body string) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .body { padding: 15px; margin: 20px 0; white-space: pre-line; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.Subject}}</h2>
    </div>
    <div class="body">{{.Body}}</div>
    <hr>
    <p><small>This message was sent automatically on behalf of the workspace.</small></p>
</body>
</html>
`

	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, struct {
		Subject string
		Body    string
	}{Subject: subject, Body: body}); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Package email delivers transactional mail over SMTP with STARTTLS.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/jordan-wright/email"
)

type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	AppName      string
}

type Sender struct {
	config Config
	tmpl   *template.Template
}

func NewSender(cfg Config) (*Sender, error) {
	if cfg.AppName == "" {
		cfg.AppName = "Weather App"
	}
	tmpl, err := template.New("verification").Parse(verificationTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %v", err)
	}
	return &Sender{config: cfg, tmpl: tmpl}, nil
}

type templateData struct {
	UserName string
	Code     string
	Subject  string
	Title    string
	Message  string
	AppName  string
}

func (s *Sender) SendVerificationEmail(to, userName, code string) error {
	data := templateData{
		UserName: userName,
		Code:     code,
		Subject:  "Verify Your Email Address",
		Title:    "Email Verification",
		Message:  "Please use the verification code below to confirm your email address:",
		AppName:  s.config.AppName,
	}

	var htmlBuffer bytes.Buffer
	if err := s.tmpl.Execute(&htmlBuffer, data); err != nil {
		return fmt.Errorf("failed to execute template: %v", err)
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	e.To = []string{to}
	e.Subject = data.Subject
	e.HTML = htmlBuffer.Bytes()

	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	// STARTTLS is required on port 587 by most providers
	return e.SendWithStartTLS(
		fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort),
		auth,
		&tls.Config{ServerName: s.config.SMTPHost},
	)
}

const verificationTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif; line-height: 1.6; color: #333; background-color: #f8fafc; }
        .container { max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 12px; box-shadow: 0 10px 25px rgba(0, 0, 0, 0.1); overflow: hidden; }
        .header { background: linear-gradient(135deg, #4299e1 0%, #2b6cb0 100%); color: white; padding: 40px 30px; text-align: center; }
        .header h1 { font-size: 28px; font-weight: 600; margin-bottom: 10px; }
        .content { padding: 40px 30px; }
        .greeting { font-size: 18px; margin-bottom: 25px; color: #2d3748; }
        .message { font-size: 16px; margin-bottom: 30px; color: #4a5568; line-height: 1.7; }
        .code-container { background-color: #f7fafc; border: 2px dashed #e2e8f0; border-radius: 8px; padding: 25px; text-align: center; margin: 30px 0; }
        .code { font-family: 'SF Mono', Monaco, Consolas, 'Courier New', monospace; font-size: 32px; font-weight: 700; color: #2d3748; letter-spacing: 4px; background-color: #ffffff; padding: 15px 25px; border-radius: 6px; border: 1px solid #e2e8f0; display: inline-block; }
        .footer { background-color: #f7fafc; padding: 30px; text-align: center; border-top: 1px solid #e2e8f0; }
        .footer p { font-size: 14px; color: #718096; margin-bottom: 5px; }
        @media (max-width: 600px) { .container { margin: 20px; border-radius: 8px; } .header, .content, .footer { padding: 25px 20px; } }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.AppName}}</h1>
            <p>{{.Title}}</p>
        </div>
        <div class="content">
            <div class="greeting">Hello {{.UserName}},</div>
            <div class="message">{{.Message}}</div>
            <div class="code-container">
                <div class="code">{{.Code}}</div>
            </div>
            <div class="message">If you didn't create an account, please ignore this email.</div>
        </div>
        <div class="footer">
            <p>This is an automated message, please do not reply.</p>
        </div>
    </div>
</body>
</html>`

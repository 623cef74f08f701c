package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/avelarde/devtrack/internal/logging"
)

// Service sends transactional mail over SMTP. Callers treat it as
// fire-and-forget: delivery failures are logged, never fatal.
type Service struct {
	dialer     *gomail.Dialer
	from       string
	appBaseURL string
}

func NewService(smtpHost string, smtpPort int, smtpUser, smtpPassword, from, appBaseURL string) *Service {
	return &Service{
		dialer:     gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:       from,
		appBaseURL: appBaseURL,
	}
}

// SendVerificationEmail sends an email verification link to the user.
// This method is designed to be called in a goroutine with a bounded context.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	logger := logging.FromContext(ctx)

	verificationLink := fmt.Sprintf("%s/auth/verify?token=%s", s.appBaseURL, token)

	body, err := renderVerificationBody(username, verificationLink)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", "Please confirm your email address")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nPlease confirm your email address by visiting this link: %s\n\nIf you did not request this, you can ignore this email.\n",
		username, verificationLink,
	))
	msg.AddAlternative("text/html", body)

	sent := make(chan error, 1)
	go func() {
		sent <- s.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}

	logger.Info("verification email sent", "email", toEmail)
	return nil
}

var verificationTmpl = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #4F46E5;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .button {
            display: inline-block;
            background-color: #4F46E5;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Welcome to DevTrack!</h1>
    </div>
    <div class="content">
        <h2>Hi {{.Username}}, verify your email address</h2>
        <p>Thank you for signing up! Please click the button below to verify your email address and activate your account.</p>

        <a href="{{.VerificationLink}}" class="button" style="color: white !important;">Verify Email Address</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.VerificationLink}}</p>

        <p style="margin-top: 30px;">If you didn't create an account, you can safely ignore this email.</p>
    </div>
    <div class="footer">
        <p>This link will expire in 24 hours.</p>
    </div>
</body>
</html>
`))

func renderVerificationBody(username, verificationLink string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Username         string
		VerificationLink string
	}{
		Username:         username,
		VerificationLink: verificationLink,
	}

	if err := verificationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

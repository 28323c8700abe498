package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Message tags
const (
	TagSignupCode        = "signup-code"
	TagEmailChangeCode   = "email-change-code"
	TagPasswordResetCode = "password-reset-code"
	TagPasswordResetLink = "password-reset-link"
)

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; line-height: 1.5;">
<p>{{.Intro}}</p>
{{if .Code}}<p style="font-size: 24px; letter-spacing: 4px;"><strong>{{.Code}}</strong></p>{{end}}
{{if .Link}}<p><a href="{{.Link}}">{{.LinkText}}</a></p>{{end}}
<p>This {{.What}} expires in {{.ExpiresIn}}. If you did not request it, ignore this email.</p>
</body>
</html>
`))

type body struct {
	Intro     string
	Code      string
	Link      string
	LinkText  string
	What      string
	ExpiresIn string
}

// SignupCode renders the message carrying a signup verification code
func SignupCode(to, code string, ttl time.Duration) (Message, error) {
	return codeMessage(to, TagSignupCode, "Verify your email",
		"Use this code to finish creating your account:", code, ttl)
}

// EmailChangeCode renders the message sent to the new address of an email change
func EmailChangeCode(to, code string, ttl time.Duration) (Message, error) {
	return codeMessage(to, TagEmailChangeCode, "Confirm your new email",
		"Use this code to confirm your new email address:", code, ttl)
}

// PasswordResetCode renders the message carrying a password reset code
func PasswordResetCode(to, code string, ttl time.Duration) (Message, error) {
	return codeMessage(to, TagPasswordResetCode, "Reset your password",
		"Use this code to reset your password:", code, ttl)
}

// PasswordResetLink renders the message carrying a password reset link
func PasswordResetLink(to, link string, ttl time.Duration) (Message, error) {
	b := body{
		Intro:     "Follow the link below to reset your password.",
		Link:      link,
		LinkText:  "Reset password",
		What:      "link",
		ExpiresIn: humanize(ttl),
	}
	text := fmt.Sprintf("%s\n\n%s\n\nThis link expires in %s.", b.Intro, link, b.ExpiresIn)
	return render(to, TagPasswordResetLink, "Password Reset Link", text, b)
}

func codeMessage(to, tag, subject, intro, code string, ttl time.Duration) (Message, error) {
	b := body{
		Intro:     intro,
		Code:      code,
		What:      "code",
		ExpiresIn: humanize(ttl),
	}
	text := fmt.Sprintf("%s %s\n\nThis code expires in %s.", intro, code, b.ExpiresIn)
	return render(to, tag, subject, text, b)
}

func render(to, tag, subject, text string, b body) (Message, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, b); err != nil {
		return Message{}, fmt.Errorf("failed to render %s email: %w", tag, err)
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    text,
		HTML:    buf.String(),
		Tag:     tag,
	}, nil
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

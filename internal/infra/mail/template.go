package mail

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"

	"campuseval/config"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
)

const passwordResetHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
    <h2 style="color: #333; text-align: center; margin-bottom: 30px;">Password Reset Request</h2>
    <p style="color: #666; font-size: 16px; line-height: 1.6;">You requested a password reset for your account.</p>
    <p style="color: #666; font-size: 16px; line-height: 1.6;">Click the button below to reset your password:</p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background-color: #007bff; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; display: inline-block; font-weight: bold;">Reset Password</a>
    </div>
    <p style="color: #666; font-size: 14px; line-height: 1.6;">If the button doesn't work, copy and paste this link into your browser:</p>
    <p style="color: #007bff; font-size: 12px; word-break: break-all;">{{.Link}}</p>
    <p style="color: #999; font-size: 12px; line-height: 1.6;">This link expires in {{.ValidFor}}. If you didn't request this, you can ignore this email.</p>
  </div>
</div>
`

const passwordResetText = `Password Reset Request

You requested a password reset for your account.
Open the link below to choose a new password:

{{.Link}}

This link expires in {{.ValidFor}}. If you didn't request this, you can ignore this email.
`

type resetTemplateData struct {
	Link     string
	ValidFor string
}

type templateRenderer struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func NewTemplateRenderer(cfg *config.Config) service.EmailRenderer {
	return &templateRenderer{
		subject: cfg.PasswordReset.Subject,
		html:    htmltemplate.Must(htmltemplate.New("reset.html").Parse(passwordResetHTML)),
		text:    texttemplate.Must(texttemplate.New("reset.txt").Parse(passwordResetText)),
	}
}

func (r *templateRenderer) RenderPasswordReset(to, link string, validFor time.Duration) (*service.OutboundEmail, error) {
	data := resetTemplateData{Link: link, ValidFor: humanizeDuration(validFor)}

	var html, text bytes.Buffer
	if err := r.html.Execute(&html, data); err != nil {
		return nil, errors.Wrap(err, "render reset html")
	}
	if err := r.text.Execute(&text, data); err != nil {
		return nil, errors.Wrap(err, "render reset text")
	}

	return &service.OutboundEmail{
		To:       to,
		Subject:  r.subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return strconv.Itoa(n) + " " + unit + "s"
}

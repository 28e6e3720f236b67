package mailer

// Service sends guest-facing email. Implementations: MailerSend for
// production, SMTP for staging/Mailpit, dev for local log-only runs.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
}

package mail

import (
	"fmt"
	"net/smtp"
)

// Mailer sends one-time codes over plain SMTP with AUTH.
type Mailer struct {
	host string
	port int
	user string
	pass string
}

func NewMailer(host string, port int, user, pass string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass}
}

// SendOTP delivers a verification code to the given address.
func (m *Mailer) SendOTP(to, code string) error {
	if m.user == "" || m.pass == "" {
		return fmt.Errorf("smtp credentials not configured")
	}

	msg := fmt.Sprintf("From: \"dchat\" <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: Your verification code\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"<b>Your code is: %s</b>\r\n", m.user, to, code)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(addr, auth, m.user, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderEmail string
	Encryption  string
	Timeout     time.Duration
}

type SMTPNotifier struct {
	cfg    SMTPConfig
	log    *zap.Logger
	dialer *gomail.Dialer
}

func NewSMTPNotifier(cfg SMTPConfig, log *zap.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.SenderEmail == "" {
		return nil, errors.New("SMTP host, port, and sender email must be configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	return &SMTPNotifier{cfg: cfg, log: log, dialer: dialer}, nil
}

func (s *SMTPNotifier) Send(ctx context.Context, mail Mail) error {
	m, err := s.build(mail)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		s.log.Warn("email sending cancelled or timed out",
			zap.Strings("to", mail.To), zap.String("subject", mail.Subject), zap.Error(ctx.Err()))
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			s.log.Error("failed to send email",
				zap.Strings("to", mail.To), zap.String("subject", mail.Subject), zap.Error(err))
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	s.log.Info("email sent", zap.Strings("to", mail.To), zap.String("subject", mail.Subject))
	return nil
}

func (s *SMTPNotifier) build(mail Mail) (*gomail.Message, error) {
	if len(mail.To) == 0 {
		return nil, errors.New("no recipients provided for email")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SenderEmail)
	m.SetHeader("To", mail.To...)
	m.SetHeader("Subject", mail.Subject)

	switch {
	case mail.HTMLBody != "":
		m.SetBody("text/html", mail.HTMLBody)
		if mail.TextBody != "" {
			m.AddAlternative("text/plain", mail.TextBody)
		}
	case mail.TextBody != "":
		m.SetBody("text/plain", mail.TextBody)
	default:
		return nil, errors.New("email body (HTML or Text) must be provided")
	}

	for _, att := range mail.Inline {
		data := att.Data
		m.Embed(att.Name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {att.ContentType}}),
		)
	}
	return m, nil
}

// LogNotifier writes mails to the log instead of sending them. Used when SMTP
// is not configured outside production.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Send(_ context.Context, mail Mail) error {
	if len(mail.To) == 0 {
		return errors.New("no recipients provided for email")
	}
	l.log.Info("email (not sent, SMTP disabled)",
		zap.Strings("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.String("body", mail.TextBody))
	return nil
}

// Package notify provides notification services for overload alerts.
package notify

import (
	"fmt"
	"strings"

	"github.com/oszuidwest/zwfm-meter/internal/util"
	"github.com/wneessen/go-mail"
)

// EmailConfig contains SMTP server settings for email notifications.
type EmailConfig struct {
	Host       string
	Port       int
	FromName   string
	Username   string
	Password   string
	Recipients string
}

// EmailConfigFromValues constructs an EmailConfig from individual values.
// This provides a single point of construction to reduce duplication.
func EmailConfigFromValues(host string, port int, fromName, username, password, recipients string) *EmailConfig {
	return &EmailConfig{
		Host:       host,
		Port:       port,
		FromName:   fromName,
		Username:   username,
		Password:   password,
		Recipients: recipients,
	}
}

// SendOverloadAlert sends an email notification when a channel clips.
func SendOverloadAlert(cfg *EmailConfig, channel int, peakDb float64) error {
	if !util.IsConfigured(cfg.Host, cfg.Username, cfg.Recipients) {
		return nil // Silently skip if not configured
	}

	subject := "[ALERT] Overload Detected - ZuidWest FM Meter"
	body := fmt.Sprintf(
		"Signal overload detected on the level meter.\n\n"+
			"Channel: %d\n"+
			"Peak:    %+.1f dBFS\n"+
			"Time:    %s\n\n"+
			"Please check the source gain staging.",
		channel, peakDb, util.HumanTime(),
	)

	return sendEmail(cfg, subject, body)
}

// SendRecoveryAlert sends an email notification when levels drop back below
// the overload trigger.
func SendRecoveryAlert(cfg *EmailConfig, overloadDuration float64) error {
	if !util.IsConfigured(cfg.Host, cfg.Username, cfg.Recipients) {
		return nil // Silently skip if not configured
	}

	subject := "[OK] Levels Recovered - ZuidWest FM Meter"
	body := fmt.Sprintf(
		"Signal levels are back below the overload trigger.\n\n"+
			"Overload lasted: %.1f seconds\n"+
			"Time:            %s",
		overloadDuration, util.HumanTime(),
	)

	return sendEmail(cfg, subject, body)
}

// SendTestEmail sends a test email to verify SMTP configuration.
func SendTestEmail(cfg *EmailConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if cfg.Username == "" {
		return fmt.Errorf("email username not configured")
	}
	if cfg.Recipients == "" {
		return fmt.Errorf("email recipients not configured")
	}

	subject := "[TEST] ZuidWest FM Meter"
	body := fmt.Sprintf(
		"Test email from the level meter.\n\n"+
			"Time: %s\n\n"+
			"SMTP configuration is working correctly.",
		util.HumanTime(),
	)

	return sendEmail(cfg, subject, body)
}

// sendEmail delivers an email message to configured recipients.
func sendEmail(cfg *EmailConfig, subject, body string) error {
	var recipients []string
	for _, r := range strings.Split(cfg.Recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	m := mail.NewMsg()
	if cfg.FromName != "" {
		if err := m.FromFormat(cfg.FromName, cfg.Username); err != nil {
			return util.WrapError("set from address", err)
		}
	} else {
		if err := m.From(cfg.Username); err != nil {
			return util.WrapError("set from address", err)
		}
	}
	if err := m.To(recipients...); err != nil {
		return util.WrapError("set recipient address", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	// Build client options with port-appropriate TLS settings
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}

	switch cfg.Port {
	case 465: // SMTPS - implicit TLS
		opts = append(opts, mail.WithSSL())
	case 587: // Submission - STARTTLS required
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	default: // Port 25 or custom - opportunistic TLS
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return util.WrapError("create SMTP client", err)
	}

	if err := c.DialAndSend(m); err != nil {
		return util.WrapError("send email", err)
	}

	return nil
}

// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

var errNoRecipients = errors.New("message has no recipients")

// Transport delivers composed messages. *mail.Client implements it.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// MailerConfig configures a Mailer.
type MailerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// RatePerMinute and Burst throttle outgoing mail.
	RatePerMinute int
	Burst         int
}

// Mailer is a Sink sending mail through an SMTP relay.
type Mailer struct {
	cfg       MailerConfig
	limiter   *rate.Limiter
	transport Transport
	logger    zerolog.Logger
}

// NewMailer returns a Mailer for the relay in cfg. STARTTLS is used when
// the relay offers it; credentials are sent with PLAIN auth when a user
// is set.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP settings: %w", err)
	}

	perSecond := rate.Limit(float64(cfg.RatePerMinute) / 60)
	if cfg.RatePerMinute <= 0 {
		perSecond = rate.Inf
	}

	return &Mailer{
		cfg:       cfg,
		limiter:   rate.NewLimiter(perSecond, max(cfg.Burst, 1)),
		transport: client,
		logger:    log.With().Str("sys", "notify").Logger(),
	}, nil
}

// WithTransport replaces the SMTP client, for tests.
func (m *Mailer) WithTransport(t Transport) *Mailer {
	m.transport = t

	return m
}

// Send implements Sink. It waits for the rate limiter, so a burst of
// notifications is spread out instead of dropped.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errNoRecipients
	}

	composed, err := m.compose(msg, time.Now())
	if err != nil {
		return err
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail throttled: %w", err)
	}

	if err := m.transport.DialAndSendWithContext(ctx, composed); err != nil {
		m.logger.Warn().Err(err).Strs("to", msg.To).Str("subject", msg.Subject).Msg("Could not send mail")

		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("Sent mail")

	return nil
}

func (m *Mailer) compose(msg Message, now time.Time) (*mail.Msg, error) {
	out := mail.NewMsg(mail.WithCharset(mail.CharsetUTF8), mail.WithEncoding(mail.EncodingQP))

	if err := out.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}

	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}

	if msg.ReplyTo != "" {
		if err := out.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply address %q: %w", msg.ReplyTo, err)
		}
	}

	domain := "localhost"
	if _, d, ok := strings.Cut(m.cfg.From, "@"); ok {
		domain = strings.Trim(d, "> ")
	}

	out.Subject(msg.Subject)
	out.SetDateWithValue(now)
	out.SetMessageIDWithValue(uuid.NewString() + "@" + domain)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	return out, nil
}

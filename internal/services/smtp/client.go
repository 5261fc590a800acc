package smtp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	mailsmtp "github.com/wneessen/go-mail/smtp"

	"telex/internal/config"
	"telex/internal/services"
)

const implicitTLSPort = 465

// Message is one outgoing mail.
type Message struct {
	From       string
	Recipients []string
	Subject    string
	Body       string
}

// Sender defines the behaviour required by the dispatcher.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dialer abstracts the go-mail client for tests.
type Dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Option configures the client.
type Option func(*Client)

// WithDialerFactory overrides how the go-mail client is constructed.
func WithDialerFactory(fn func() (Dialer, error)) Option {
	return func(c *Client) {
		if fn != nil {
			c.newDialer = fn
		}
	}
}

// Client sends messages through a configured SMTP server.
type Client struct {
	host      string
	port      int
	useTLS    bool
	username  string
	password  string
	timeout   time.Duration
	newDialer func() (Dialer, error)
}

// New constructs an SMTP client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("smtp: config required")
	}
	host := strings.TrimSpace(cfg.SMTP.Host)
	if host == "" {
		return nil, errors.New("smtp: host required")
	}
	client := &Client{
		host:     host,
		port:     cfg.SMTP.Port,
		useTLS:   cfg.SMTP.UseTLS,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
		timeout:  cfg.SendTimeout(),
	}
	client.newDialer = client.dialer
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Address returns host:port for diagnostics.
func (c *Client) Address() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

func (c *Client) dialer() (Dialer, error) {
	options := []mail.Option{
		mail.WithPort(c.port),
		mail.WithTimeout(c.timeout),
	}
	switch {
	case c.port == implicitTLSPort:
		options = append(options, mail.WithSSL())
	case c.useTLS:
		options = append(options, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		options = append(options, mail.WithTLSPolicy(mail.NoTLS))
	}
	switch {
	case c.username == "":
	case c.port == implicitTLSPort || c.useTLS:
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(c.username),
			mail.WithPassword(c.password),
		)
	default:
		options = append(options, mail.WithSMTPAuthCustom(&plaintextAuth{
			username: c.username,
			password: c.password,
			host:     c.host,
		}))
	}
	client, err := mail.NewClient(c.host, options...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// plaintextMechanisms lists what plaintextAuth will use, most preferred first.
var plaintextMechanisms = []string{"SCRAM-SHA-256", "SCRAM-SHA-1", "CRAM-MD5", "PLAIN", "LOGIN"}

// plaintextAuth authenticates on a connection without TLS. go-mail's own
// discovery never offers PLAIN or LOGIN there, so the mechanism is chosen
// from the server's EHLO advertisement instead.
type plaintextAuth struct {
	username string
	password string
	host     string
	chosen   mailsmtp.Auth
}

func (a *plaintextAuth) Start(server *mailsmtp.ServerInfo) (string, []byte, error) {
	a.chosen = nil
	for _, mech := range plaintextMechanisms {
		if !slices.Contains(server.Auth, mech) {
			continue
		}
		switch mech {
		case "SCRAM-SHA-256":
			a.chosen = mailsmtp.ScramSHA256Auth(a.username, a.password)
		case "SCRAM-SHA-1":
			a.chosen = mailsmtp.ScramSHA1Auth(a.username, a.password)
		case "CRAM-MD5":
			a.chosen = mailsmtp.CRAMMD5Auth(a.username, a.password)
		case "PLAIN":
			a.chosen = mailsmtp.PlainAuth("", a.username, a.password, a.host, true)
		case "LOGIN":
			a.chosen = mailsmtp.LoginAuth(a.username, a.password, a.host, true)
		}
		break
	}
	if a.chosen == nil {
		return "", nil, fmt.Errorf("no usable auth mechanism among %q", server.Auth)
	}
	return a.chosen.Start(server)
}

func (a *plaintextAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if a.chosen == nil {
		return nil, errors.New("auth not started")
	}
	return a.chosen.Next(fromServer, more)
}

// Compose converts msg into a go-mail message.
func Compose(msg Message) (*mail.Msg, error) {
	if len(msg.Recipients) == 0 {
		return nil, errors.New("no recipients")
	}
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address %q: %w", msg.From, err)
	}
	if err := m.To(msg.Recipients...); err != nil {
		return nil, fmt.Errorf("recipient addresses: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

// Send delivers msg to every recipient in a single SMTP transaction. All
// failures are reported as services.ErrDelivery.
func (c *Client) Send(ctx context.Context, msg Message) error {
	composed, err := Compose(msg)
	if err != nil {
		return services.Wrap(services.ErrDelivery, "dispatch", "compose", "message rejected before sending", err)
	}
	dialer, err := c.newDialer()
	if err != nil {
		return services.Wrap(services.ErrDelivery, "dispatch", "connect", "smtp client setup failed", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := dialer.DialAndSendWithContext(ctx, composed); err != nil {
		return services.Wrap(services.ErrDelivery, "dispatch", "send",
			fmt.Sprintf("smtp %s", c.Address()), err)
	}
	return nil
}

package ftp

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Option is a functional option for configuring an FTP client.
type Option func(*Client) error

// WithTimeout sets the timeout for connection establishment and for every
// subsequent read/write on the control and data sockets. The engine enforces
// no deadline of its own when this is zero.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

// WithIdleTimeout sets the maximum idle time before a NOOP keep-alive is
// sent automatically, preventing the server from closing an idle control
// connection. Zero disables keep-alive.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.idleTimeout = timeout
		return nil
	}
}

// WithExplicitTLS enables explicit TLS (FTPS with AUTH TLS). The client
// connects in plaintext, reads the greeting, and upgrades the control channel
// before anything else is sent. This is the recommended FTPS mode.
//
// The tls.Config should carry the ServerName for certificate validation. A
// ClientSessionCache is added when missing so data connections can resume the
// control connection's TLS session.
func WithExplicitTLS(config *tls.Config) Option {
	return func(c *Client) error {
		if c.tlsMode == tlsModeImplicit {
			return fmt.Errorf("explicit TLS cannot be combined with implicit TLS")
		}
		c.tlsConfig = ensureSessionCache(config)
		c.tlsMode = tlsModeExplicit
		return nil
	}
}

// WithImplicitTLS enables implicit TLS: the connection is TLS from the first
// byte, typically on port 990. A legacy mode, but still deployed.
func WithImplicitTLS(config *tls.Config) Option {
	return func(c *Client) error {
		if c.tlsMode == tlsModeExplicit {
			return fmt.Errorf("implicit TLS cannot be combined with explicit TLS")
		}
		c.tlsConfig = ensureSessionCache(config)
		c.tlsMode = tlsModeImplicit
		return nil
	}
}

func ensureSessionCache(config *tls.Config) *tls.Config {
	if config == nil {
		config = &tls.Config{}
	}
	if config.ClientSessionCache == nil {
		config.ClientSessionCache = tls.NewLRUClientSessionCache(0)
	}
	return config
}

// WithLogger enables debug logging through the provided logger. Every command
// and reply is traced at debug level with structured fields; PASS arguments
// are redacted.
//
// Example:
//
//	logger := logrus.New()
//	logger.SetLevel(logrus.DebugLevel)
//	client, _ := ftp.Dial("ftp.example.com:21", ftp.WithLogger(logger))
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom net.Dialer for establishing the control and data
// connections. Useful for source-address binding and keep-alive tuning.
func WithDialer(dialer *net.Dialer) Option {
	return func(c *Client) error {
		c.dialer = dialer
		return nil
	}
}

// WithDisableEPSV forces PASV negotiation without trying EPSV first. Useful
// for servers or middleboxes that mishandle EPSV.
func WithDisableEPSV() Option {
	return func(c *Client) error {
		c.disableEPSV = true
		return nil
	}
}

// FinishPolicy controls what happens to the control channel when a
// transfer's data stream fails mid-flight. The protocol does not specify
// whether the server's completion reply is still worth waiting for, so the
// choice is the caller's.
type FinishPolicy int

const (
	// FinishPolicyDrain closes the data socket and still reads the server's
	// completion reply best-effort, keeping the control channel in sync for
	// further commands. This is the default.
	FinishPolicyDrain FinishPolicy = iota

	// FinishPolicyAbandon closes the data socket and gives up on the control
	// channel entirely; the caller must reconnect.
	FinishPolicyAbandon
)

// WithProgress registers a callback that receives the running payload byte
// total of every transfer. Each transfer counts from zero; the callback runs
// on the goroutine driving the transfer.
//
// Example:
//
//	client, _ := ftp.Dial("ftp.example.com:21", ftp.WithProgress(func(n int64) {
//	    fmt.Printf("\r%d bytes", n)
//	}))
func WithProgress(callback func(bytesTransferred int64)) Option {
	return func(c *Client) error {
		c.progress = callback
		return nil
	}
}

// WithFinishPolicy selects the failed-transfer completion policy.
func WithFinishPolicy(policy FinishPolicy) Option {
	return func(c *Client) error {
		c.finishPolicy = policy
		return nil
	}
}

// tlsMode represents how TLS is introduced on the control connection.
type tlsMode int

const (
	tlsModeNone tlsMode = iota
	tlsModeExplicit
	tlsModeImplicit
)

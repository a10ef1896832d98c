package ftp

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// sessionState is the explicit protocol state of a session, checked at every
// operation's entry so illegal call sequences fail fast locally.
type sessionState int

const (
	stateDisconnected sessionState = iota
	stateConnected                 // greeting consumed, not yet authenticated
	stateAuthenticated             // login accepted, idle
	stateTransferring              // a data connection is open
	stateDead                      // control channel can no longer be trusted
)

func (s sessionState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnected:
		return "connected"
	case stateAuthenticated:
		return "authenticated"
	case stateTransferring:
		return "transferring"
	case stateDead:
		return "dead"
	}
	return "unknown"
}

// Client represents an FTP session. It exclusively owns its control socket
// for the session's lifetime and must be driven by one goroutine at a time:
// the control channel's send-one-command-await-one-reply contract is not
// reentrant.
type Client struct {
	// conn is the control connection, possibly TLS-wrapped.
	conn net.Conn

	// reader buffers the control connection for reply framing.
	reader *bufio.Reader

	// state is the explicit session state; see sessionState.
	state sessionState

	// secMode is the security mode applied to the control connection and to
	// every negotiated data connection.
	secMode securityMode

	tlsConfig *tls.Config
	tlsMode   tlsMode

	timeout     time.Duration
	idleTimeout time.Duration

	finishPolicy FinishPolicy

	// progress, when set, receives the running byte total of each transfer.
	progress func(bytesTransferred int64)

	logger logrus.FieldLogger

	dialer *net.Dialer

	host string
	port string

	// greeting is the text of the server's 220 welcome reply.
	greeting string

	// features caches the server's FEAT response.
	features map[string]string

	disableEPSV bool

	// currentType suppresses redundant TYPE commands.
	currentType TransferType

	// mu serializes command exchanges and guards lastCommand/activeDataConn.
	mu          sync.Mutex
	lastCommand time.Time

	// quitChan stops the keep-alive goroutine.
	quitChan chan struct{}

	// activeDataConn is the at-most-one data connection currently open.
	activeDataConn net.Conn
}

// Dial connects to an FTP server at the given "host:port" address, reads the
// 220 greeting, and applies the configured TLS mode.
//
// Example with explicit TLS:
//
//	client, err := ftp.Dial("ftp.example.com:21", ftp.WithExplicitTLS(&tls.Config{
//	    ServerName: "ftp.example.com",
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
func Dial(addr string, options ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		host:    host,
		port:    port,
		timeout: 30 * time.Second,
		tlsMode: tlsModeNone,
		dialer:  &net.Dialer{},
		logger:  discard,
	}

	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	c.dialer.Timeout = c.timeout

	if err := c.connect(); err != nil {
		return nil, err
	}

	c.lastCommand = time.Now()
	c.startKeepAlive()

	return c, nil
}

// Connect connects using a URL and logs in. Supported schemes: "ftp",
// "ftps" (implicit TLS, default port 990), "ftp+explicit" (explicit TLS).
// Format: scheme://[user:password@]host[:port][/path]. Without credentials an
// anonymous login is attempted.
func Connect(urlStr string) (*Client, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	host := u.Hostname()
	port := u.Port()
	var options []Option

	switch strings.ToLower(u.Scheme) {
	case "ftp":
		if port == "" {
			port = "21"
		}
	case "ftps":
		if port == "" {
			port = "990"
		}
		options = append(options, WithImplicitTLS(&tls.Config{ServerName: host}))
	case "ftp+explicit":
		if port == "" {
			port = "21"
		}
		options = append(options, WithExplicitTLS(&tls.Config{ServerName: host}))
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	c, err := Dial(net.JoinHostPort(host, port), options...)
	if err != nil {
		return nil, err
	}

	user := u.User.Username()
	pass, hasPass := u.User.Password()
	if user == "" {
		user = "anonymous"
		pass = "anonymous@"
	} else if !hasPass {
		pass = ""
	}

	if err := c.Login(user, pass); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if u.Path != "" && u.Path != "/" {
		if err := c.ChangeDir(u.Path); err != nil {
			_ = c.Quit()
			return nil, fmt.Errorf("failed to change directory: %w", err)
		}
	}

	return c, nil
}

// connect establishes the control connection and consumes the greeting.
func (c *Client) connect() error {
	addr := net.JoinHostPort(c.host, c.port)
	c.logger.WithFields(logrus.Fields{"addr": addr, "security": c.secMode}).Debug("connecting to ftp server")

	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if c.tlsMode == tlsModeImplicit {
		c.secMode = securitySecure
		conn, err = c.wrapControlStream(conn)
		if err != nil {
			return &SecureUpgradeError{Err: err}
		}
	}

	c.conn = conn
	c.reader = bufio.NewReader(c.conn)

	greeting, err := c.readControlReply()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to read greeting: %w", err)
	}

	c.logger.WithFields(logrus.Fields{"code": greeting.Code, "message": greeting.Message}).Debug("ftp greeting")

	if greeting.Code != StatusReady {
		c.conn.Close()
		return &UnexpectedReplyError{
			Command: "greeting",
			Code:    greeting.Code,
			Message: greeting.Message,
			Want:    "220",
		}
	}

	c.greeting = greeting.Message
	c.state = stateConnected

	if c.tlsMode == tlsModeExplicit {
		return c.SecureUpgrade()
	}
	return nil
}

// Greeting returns the welcome text from the server's 220 reply.
func (c *Client) Greeting() string {
	return c.greeting
}

// SecureUpgrade switches the control channel from plaintext to TLS via the
// AUTH TLS exchange (RFC 4217) and protects subsequent data channels with
// PBSZ 0 / PROT P. Valid before or after login, once. On failure the control
// channel is closed and cannot be reused; there is no plaintext fallback.
func (c *Client) SecureUpgrade() error {
	if err := c.requireState("AUTH TLS", stateConnected, stateAuthenticated); err != nil {
		return err
	}
	if c.secMode == securitySecure {
		return &InvalidStateError{Op: "AUTH TLS", State: "secured"}
	}

	c.tlsConfig = ensureSessionCache(c.tlsConfig)
	if c.tlsConfig.ServerName == "" && !c.tlsConfig.InsecureSkipVerify {
		c.tlsConfig.ServerName = c.host
	}

	// The AUTH TLS exchange, the handshake, and the stream swap stay inside
	// one critical section so a keep-alive NOOP cannot land as plaintext
	// between the 234 and the ClientHello.
	c.mu.Lock()
	reply, err := c.exchange("AUTH TLS")
	if err != nil {
		c.mu.Unlock()
		return c.failSecureUpgrade(err)
	}
	if reply.Code != StatusAuthOK {
		c.mu.Unlock()
		return c.failSecureUpgrade(&UnexpectedReplyError{
			Command: "AUTH TLS",
			Code:    reply.Code,
			Message: reply.Message,
			Want:    "234",
		})
	}

	c.secMode = securitySecure
	tlsConn, err := c.wrapControlStream(c.conn)
	if err != nil {
		c.state = stateDead
		c.mu.Unlock()
		return &SecureUpgradeError{Err: err}
	}
	c.conn = tlsConn
	c.reader = bufio.NewReader(c.conn)
	c.mu.Unlock()
	c.logger.Debug("control channel TLS handshake complete")

	if _, err := c.cmdExpect(StatusCommandOK, "PBSZ", "0"); err != nil {
		return c.failSecureUpgrade(err)
	}
	if _, err := c.cmdExpect(StatusCommandOK, "PROT", "P"); err != nil {
		return c.failSecureUpgrade(err)
	}
	return nil
}

func (c *Client) failSecureUpgrade(err error) error {
	c.mu.Lock()
	c.state = stateDead
	_ = c.conn.Close()
	c.mu.Unlock()
	return &SecureUpgradeError{Err: err}
}

// Login authenticates the session. USER is sent first; if the server asks
// for more (331) PASS follows. Rejected credentials leave the session
// connected so the caller may retry.
func (c *Client) Login(username, password string) error {
	if err := c.requireState("USER", stateConnected); err != nil {
		return err
	}

	reply, err := c.sendCommand("USER", username)
	if err != nil {
		return err
	}

	switch {
	case reply.Code == StatusLoggedIn:
		// Some servers need no password.
		c.state = stateAuthenticated
		return nil
	case reply.Code != StatusUserOK:
		return &LoginError{Code: reply.Code, Message: reply.Message}
	}

	reply, err = c.sendCommand("PASS", password)
	if err != nil {
		return err
	}
	if reply.Code != StatusLoggedIn {
		return &LoginError{Code: reply.Code, Message: reply.Message}
	}

	c.state = stateAuthenticated
	return nil
}

// Quit ends the session gracefully: any in-flight data connection is torn
// down, QUIT is sent best-effort, and the control socket is released.
func (c *Client) Quit() error {
	if c.conn == nil || c.state == stateDisconnected {
		return nil
	}

	c.stopKeepAlive()

	var result error

	c.mu.Lock()
	if c.activeDataConn != nil {
		if err := c.activeDataConn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		c.activeDataConn = nil
	}
	c.mu.Unlock()

	if c.state != stateDead {
		// Best effort; the server may close first.
		_, _ = c.sendCommand("QUIT")
	}

	if err := c.conn.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	c.state = stateDisconnected
	return result
}

// Close releases the sockets without the QUIT exchange. Prefer Quit; Close is
// the drop path for when the control channel is no longer trustworthy.
func (c *Client) Close() error {
	if c.conn == nil || c.state == stateDisconnected {
		return nil
	}

	c.stopKeepAlive()

	var result error

	c.mu.Lock()
	if c.activeDataConn != nil {
		if err := c.activeDataConn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		c.activeDataConn = nil
	}
	c.mu.Unlock()

	if err := c.conn.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	c.state = stateDisconnected
	return result
}

// Noop sends a NOOP command, useful as a keep-alive during long idle periods.
func (c *Client) Noop() error {
	if err := c.requireState("NOOP", stateConnected, stateAuthenticated); err != nil {
		return err
	}
	_, err := c.cmd2xx("NOOP")
	return err
}

// System returns the server's system type from the SYST command.
func (c *Client) System() (string, error) {
	if err := c.requireState("SYST", stateConnected, stateAuthenticated); err != nil {
		return "", err
	}
	reply, err := c.cmd2xx("SYST")
	if err != nil {
		return "", err
	}
	return reply.Message, nil
}

// Features queries the server's advertised features (FEAT, RFC 2389) and
// caches the result for the rest of the session.
func (c *Client) Features() (map[string]string, error) {
	if err := c.requireState("FEAT", stateConnected, stateAuthenticated); err != nil {
		return nil, err
	}
	if c.features != nil {
		return c.features, nil
	}

	reply, err := c.cmdExpect(StatusSystem, "FEAT")
	if err != nil {
		return nil, err
	}

	c.features = parseFeatureLines(reply.Lines)
	return c.features, nil
}

// parseFeatureLines parses a FEAT reply body. Feature lines are indented by
// one space per RFC 2389; status lines carry the 211 prefix and are skipped.
func parseFeatureLines(lines []string) map[string]string {
	features := make(map[string]string)
	for _, line := range lines {
		if len(line) == 0 || line[0] != ' ' {
			continue
		}
		featureLine := strings.TrimSpace(line)
		if featureLine == "" {
			continue
		}

		parts := strings.SplitN(featureLine, " ", 2)
		params := ""
		if len(parts) > 1 {
			params = parts[1]
		}
		features[strings.ToUpper(parts[0])] = params
	}
	return features
}

// Quote sends a raw command and returns the reply, for commands the client
// does not model explicitly.
func (c *Client) Quote(command string, args ...string) (*Reply, error) {
	if err := c.requireState(command, stateConnected, stateAuthenticated); err != nil {
		return nil, err
	}
	return c.sendCommand(command, args...)
}

// TransferType selects the representation type used for transfers.
type TransferType string

const (
	// TypeASCII transfers text with end-of-line conversion (TYPE A).
	TypeASCII TransferType = "A"

	// TypeBinary transfers raw octets (TYPE I, the image type).
	TypeBinary TransferType = "I"
)

// Type sets the transfer type. Redundant TYPE commands for the type already
// in effect are suppressed.
func (c *Client) Type(t TransferType) error {
	if err := c.requireState("TYPE", stateConnected, stateAuthenticated); err != nil {
		return err
	}
	if c.currentType == t {
		return nil
	}
	if _, err := c.cmdExpect(StatusCommandOK, "TYPE", string(t)); err != nil {
		return err
	}
	c.currentType = t
	return nil
}

func (c *Client) requireState(op string, allowed ...sessionState) error {
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}
	return &InvalidStateError{Op: op, State: c.state.String()}
}

// startKeepAlive starts a goroutine that sends NOOP when the connection has
// been idle for the configured idleTimeout.
func (c *Client) startKeepAlive() {
	if c.idleTimeout == 0 {
		return
	}

	c.quitChan = make(chan struct{})

	// Tick at half the idle timeout so an idle period cannot be missed.
	ticker := time.NewTicker(c.idleTimeout / 2)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.keepAliveTick()
			case <-c.quitChan:
				return
			}
		}
	}()
}

// keepAliveTick sends NOOP when the control channel has been idle for the
// configured period. The idle check and the send share one critical section:
// deciding unlocked and sending later could slip the NOOP between another
// exchange's command and reply, handing each the other's reply.
func (c *Client) keepAliveTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeDataConn != nil {
		return
	}
	if time.Since(c.lastCommand) < c.idleTimeout {
		return
	}

	c.logger.Debug("sending keep-alive NOOP")
	// Errors are ignored; the connection may be closing.
	_, _ = c.exchange("NOOP")
}

func (c *Client) stopKeepAlive() {
	if c.quitChan != nil {
		close(c.quitChan)
		c.quitChan = nil
	}
}

package ftp

import (
	"crypto/tls"
	"net"
	"time"
)

// securityMode selects how raw sockets are presented to the engine: plain
// passthrough or TLS-wrapped. The mode is chosen once, at secure-upgrade time
// (or at dial time for implicit TLS), and applies uniformly to the control
// connection and every data connection negotiated afterwards.
type securityMode int

const (
	securityPlain securityMode = iota
	securitySecure
)

func (m securityMode) String() string {
	if m == securitySecure {
		return "secure"
	}
	return "plain"
}

// wrapControlStream applies the session's security mode to the control
// connection, completing the TLS handshake immediately. On handshake failure
// the raw connection is closed.
func (c *Client) wrapControlStream(conn net.Conn) (net.Conn, error) {
	if c.secMode == securityPlain {
		return conn, nil
	}

	if c.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			conn.Close()
			return nil, err
		}
	}

	tlsConn := tls.Client(conn, c.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// wrapDataStream applies the session's security mode to a freshly dialed data
// connection. The session's single tls.Config is reused, so data connections
// resume the control connection's TLS session instead of making independent
// trust decisions. The handshake is deferred to the first read or write: the
// server will not negotiate TLS on the data socket until it has seen the
// transfer command on the control channel.
func (c *Client) wrapDataStream(conn net.Conn) net.Conn {
	if c.secMode == securityPlain {
		return conn
	}
	return tls.Client(conn, c.tlsConfig)
}

// deadlineConn wraps a net.Conn and arms a fresh read/write deadline before
// every operation.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}

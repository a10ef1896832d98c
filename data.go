package ftp

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// parsePasvEndpoint extracts the data-channel endpoint advertised by a PASV
// reply. The message must contain six comma-separated decimal values inside
// parentheses: (h1,h2,h3,h4,p1,p2), every value in [0,255]. The scan is a
// fixed grammar rather than a general pattern search, so stray digit runs
// elsewhere in a hostile or sloppy reply cannot produce a bogus endpoint.
func parsePasvEndpoint(message string) (string, error) {
	for i := 0; i < len(message); i++ {
		if message[i] != '(' {
			continue
		}
		if addr, ok := scanPasvGroups(message[i+1:]); ok {
			return addr, nil
		}
	}
	return "", &AddressParseError{Reply: message}
}

// scanPasvGroups parses "h1,h2,h3,h4,p1,p2)" at the start of s.
func scanPasvGroups(s string) (string, bool) {
	var groups [6]int
	pos := 0
	for i := range groups {
		if i > 0 {
			if pos >= len(s) || s[pos] != ',' {
				return "", false
			}
			pos++
		}
		val, digits := 0, 0
		for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
			val = val*10 + int(s[pos]-'0')
			digits++
			if digits > 3 || val > 255 {
				return "", false
			}
			pos++
		}
		if digits == 0 {
			return "", false
		}
		groups[i] = val
	}
	if pos >= len(s) || s[pos] != ')' {
		return "", false
	}

	host := fmt.Sprintf("%d.%d.%d.%d", groups[0], groups[1], groups[2], groups[3])
	port := groups[4]*256 + groups[5]
	return net.JoinHostPort(host, strconv.Itoa(port)), true
}

// parseEpsvPort extracts the listening port from an EPSV reply of the form
// "229 Entering Extended Passive Mode (|||6446|)".
func parseEpsvPort(message string) (int, error) {
	const opener = "(|||"
	idx := strings.Index(message, opener)
	if idx < 0 {
		return 0, &AddressParseError{Reply: message}
	}

	pos := idx + len(opener)
	port, digits := 0, 0
	for pos < len(message) && message[pos] >= '0' && message[pos] <= '9' {
		port = port*10 + int(message[pos]-'0')
		digits++
		if port > 65535 {
			return 0, &AddressParseError{Reply: message}
		}
		pos++
	}
	if digits == 0 || !strings.HasPrefix(message[pos:], "|)") {
		return 0, &AddressParseError{Reply: message}
	}
	return port, nil
}

// resolveDataAddr substitutes the control-connection host when the server
// advertises 0.0.0.0, which is common for servers behind NAT.
func resolveDataAddr(pasvAddr, controlHost string) string {
	host, port, err := net.SplitHostPort(pasvAddr)
	if err != nil {
		return pasvAddr
	}
	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}
	return pasvAddr
}

// openDataConn negotiates a passive-mode data connection: EPSV first unless
// disabled, PASV as the fallback. The new socket is wrapped through the
// session's security mode, so FTPS data channels reuse the control channel's
// TLS session parameters.
func (c *Client) openDataConn() (net.Conn, error) {
	var addr string

	if !c.disableEPSV {
		reply, err := c.sendCommand("EPSV")
		if err != nil {
			return nil, fmt.Errorf("EPSV failed: %w", err)
		}
		switch {
		case reply.Code == StatusNotImplemented:
			// Remember for the rest of the session.
			c.disableEPSV = true
		case reply.Is2xx():
			if port, err := parseEpsvPort(reply.String()); err == nil {
				addr = net.JoinHostPort(c.host, strconv.Itoa(port))
			}
		}
	}

	if addr == "" {
		reply, err := c.sendCommand("PASV")
		if err != nil {
			return nil, fmt.Errorf("PASV failed: %w", err)
		}
		if err := expectClass("PASV", reply, 2); err != nil {
			return nil, err
		}
		addr, err = parsePasvEndpoint(reply.String())
		if err != nil {
			return nil, err
		}
		addr = resolveDataAddr(addr, c.host)
	}

	c.logger.WithField("addr", addr).Debug("opening data connection")

	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to data port: %w", err)
	}

	wrapped := c.wrapDataStream(conn)

	if c.timeout > 0 {
		return &deadlineConn{Conn: wrapped, timeout: c.timeout}, nil
	}
	return wrapped, nil
}

// cmdDataConn opens the data channel and issues a command that streams its
// payload over it. The caller owns the returned connection: it must close it
// when the payload is exhausted and then consume the confirming control reply
// via finishDataConn.
func (c *Client) cmdDataConn(command string, args ...string) (net.Conn, error) {
	dataConn, err := c.openDataConn()
	if err != nil {
		return nil, err
	}

	c.setActiveDataConn(dataConn)

	reply, err := c.sendCommand(command, args...)
	if err != nil {
		dataConn.Close()
		c.setActiveDataConn(nil)
		return nil, err
	}

	// 1xx means the transfer is starting; some servers answer 2xx directly
	// when the data connection is already open.
	if err := expectClass(commandLine(command, args), reply, 1, 2); err != nil {
		dataConn.Close()
		c.setActiveDataConn(nil)
		return nil, err
	}

	return dataConn, nil
}

// finishDataConn closes the data channel and consumes the confirming control
// reply. Protocol ordering matters here: the server sends that reply only
// after it observes the data-connection closure. The reply is read under
// c.mu so the keep-alive goroutine cannot consume it instead.
func (c *Client) finishDataConn(dataConn net.Conn) error {
	closeErr := dataConn.Close()

	c.mu.Lock()
	c.activeDataConn = nil
	c.lastCommand = time.Now()
	reply, err := c.readControlReply()
	c.mu.Unlock()

	if err != nil {
		if closeErr != nil {
			return multierror.Append(closeErr, err)
		}
		return fmt.Errorf("failed to read completion reply: %w", err)
	}

	c.logger.WithFields(logrus.Fields{"code": reply.Code, "message": reply.Message}).Debug("ftp transfer complete")

	if closeErr != nil {
		return fmt.Errorf("failed to close data connection: %w", closeErr)
	}

	return expectClass("transfer completion", reply, 2)
}

func (c *Client) setActiveDataConn(conn net.Conn) {
	c.mu.Lock()
	c.activeDataConn = conn
	c.mu.Unlock()
}

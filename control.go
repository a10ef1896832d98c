package ftp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// sendCommand writes a single command line and reads exactly one reply.
// The send/await pair is serialized by c.mu; two in-flight commands on one
// control channel would corrupt reply attribution.
func (c *Client) sendCommand(command string, args ...string) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchange(commandLine(command, args))
}

// exchange performs one command/reply round trip. The caller must hold c.mu:
// the write and the read form a single unit, and nothing else may touch the
// control stream between them.
func (c *Client) exchange(cmd string) (*Reply, error) {
	c.logger.WithField("cmd", redactCommand(cmd)).Debug("ftp command")

	c.lastCommand = time.Now()

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	reply, err := c.readControlReply()
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{"code": reply.Code, "message": reply.Message}).Debug("ftp reply")

	return reply, nil
}

// readControlReply reads one reply from the control channel. Framing
// violations mark the session dead: bytes on the wire can no longer be
// attributed to commands, so the engine never retries past them.
//
// Once the keep-alive goroutine may be running, callers must hold c.mu;
// only the pre-keep-alive greeting read is exempt.
func (c *Client) readControlReply() (*Reply, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	reply, err := readReply(c.reader)
	if err != nil {
		var malformed *MalformedReplyError
		var truncated *TruncatedReplyError
		if errors.As(err, &malformed) || errors.As(err, &truncated) {
			c.state = stateDead
			return nil, err
		}
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}
	return reply, nil
}

// cmdExpect sends a command and requires an exact reply code.
func (c *Client) cmdExpect(code int, command string, args ...string) (*Reply, error) {
	reply, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}
	if reply.Code != code {
		return reply, &UnexpectedReplyError{
			Command: commandLine(command, args),
			Code:    reply.Code,
			Message: reply.Message,
			Want:    strconv.Itoa(code),
		}
	}
	return reply, nil
}

// cmd2xx sends a command and requires a reply in the success class.
func (c *Client) cmd2xx(command string, args ...string) (*Reply, error) {
	reply, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}
	if err := expectClass(commandLine(command, args), reply, 2); err != nil {
		return reply, err
	}
	return reply, nil
}

// expectClass validates a reply against the allowed reply classes (first
// digit of the code). A mismatch is a semantic failure, not a transport one.
func expectClass(command string, reply *Reply, classes ...int) error {
	for _, class := range classes {
		if reply.Code/100 == class {
			return nil
		}
	}
	return &UnexpectedReplyError{
		Command: command,
		Code:    reply.Code,
		Message: reply.Message,
		Want:    wantClasses(classes),
	}
}

func wantClasses(classes []int) string {
	parts := make([]string, len(classes))
	for i, class := range classes {
		parts[i] = fmt.Sprintf("%dxx", class)
	}
	return strings.Join(parts, " or ")
}

func commandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

// redactCommand masks credentials so PASS arguments never reach the logs.
func redactCommand(cmd string) string {
	if strings.HasPrefix(cmd, "PASS ") {
		return "PASS ****"
	}
	return cmd
}

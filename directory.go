package ftp

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// CurrentDir returns the working directory reported by PWD.
func (c *Client) CurrentDir() (string, error) {
	if err := c.requireState("PWD", stateAuthenticated); err != nil {
		return "", err
	}
	reply, err := c.cmdExpect(StatusPathCreated, "PWD")
	if err != nil {
		return "", err
	}
	return extractQuotedPath(reply.Message)
}

// extractQuotedPath pulls the directory name out of a 257 reply. RFC 959
// doubles embedded quote characters inside the quoted path.
func extractQuotedPath(message string) (string, error) {
	start := strings.IndexByte(message, '"')
	end := strings.LastIndexByte(message, '"')
	if start < 0 || end <= start {
		return "", fmt.Errorf("ftp: no quoted path in reply %q", message)
	}
	return strings.ReplaceAll(message[start+1:end], `""`, `"`), nil
}

// ChangeDir changes the working directory (CWD).
func (c *Client) ChangeDir(path string) error {
	if err := c.requireState("CWD", stateAuthenticated); err != nil {
		return err
	}
	_, err := c.cmd2xx("CWD", path)
	return err
}

// ChangeDirToParent moves to the parent directory (CDUP).
func (c *Client) ChangeDirToParent() error {
	if err := c.requireState("CDUP", stateAuthenticated); err != nil {
		return err
	}
	_, err := c.cmd2xx("CDUP")
	return err
}

// MakeDir creates a directory (MKD) and returns the path the server reports
// having created. When the server does not quote the created path, the
// argument is returned as-is.
func (c *Client) MakeDir(path string) (string, error) {
	if err := c.requireState("MKD", stateAuthenticated); err != nil {
		return "", err
	}
	reply, err := c.cmdExpect(StatusPathCreated, "MKD", path)
	if err != nil {
		return "", err
	}
	if created, err := extractQuotedPath(reply.Message); err == nil {
		return created, nil
	}
	return path, nil
}

// RemoveDir removes a directory (RMD).
func (c *Client) RemoveDir(path string) error {
	if err := c.requireState("RMD", stateAuthenticated); err != nil {
		return err
	}
	_, err := c.cmd2xx("RMD", path)
	return err
}

// Delete removes a file (DELE).
func (c *Client) Delete(path string) error {
	if err := c.requireState("DELE", stateAuthenticated); err != nil {
		return err
	}
	_, err := c.cmd2xx("DELE", path)
	return err
}

// Rename renames or moves a remote file via the RNFR/RNTO pair.
func (c *Client) Rename(from, to string) error {
	if err := c.requireState("RNFR", stateAuthenticated); err != nil {
		return err
	}
	if _, err := c.cmdExpect(StatusRequestFilePending, "RNFR", from); err != nil {
		return err
	}
	_, err := c.cmd2xx("RNTO", to)
	return err
}

// Size returns the size of a remote file in bytes (SIZE).
func (c *Client) Size(path string) (int64, error) {
	if err := c.requireState("SIZE", stateAuthenticated); err != nil {
		return 0, err
	}
	reply, err := c.cmdExpect(StatusFile, "SIZE", path)
	if err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(reply.Message), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ftp: invalid SIZE reply %q: %w", reply.Message, err)
	}
	return size, nil
}

// ModTime returns the modification time of a remote file (MDTM). The reply
// carries a UTC timestamp of the form YYYYMMDDHHMMSS, optionally with a
// fractional-second suffix, which is discarded.
func (c *Client) ModTime(path string) (time.Time, error) {
	if err := c.requireState("MDTM", stateAuthenticated); err != nil {
		return time.Time{}, err
	}
	reply, err := c.cmdExpect(StatusFile, "MDTM", path)
	if err != nil {
		return time.Time{}, err
	}

	stamp := strings.TrimSpace(reply.Message)
	if dot := strings.IndexByte(stamp, '.'); dot >= 0 {
		stamp = stamp[:dot]
	}
	t, err := time.ParseInLocation("20060102150405", stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("ftp: invalid MDTM reply %q: %w", reply.Message, err)
	}
	return t, nil
}

// List returns the raw lines of a LIST directory listing. An empty path
// lists the current directory.
//
// LIST output is not standardized across servers, so the lines are delivered
// verbatim and no field parsing is attempted. Use NameList for bare names.
func (c *Client) List(path string) ([]string, error) {
	return c.listLines("LIST", path)
}

// NameList returns the raw lines of an NLST listing: one name per line.
func (c *Client) NameList(path string) ([]string, error) {
	return c.listLines("NLST", path)
}

// listLines runs a listing command over a negotiated data channel and
// collects its output line by line.
func (c *Client) listLines(command, path string) ([]string, error) {
	if err := c.requireState(command, stateAuthenticated); err != nil {
		return nil, err
	}
	c.state = stateTransferring
	defer func() {
		if c.state == stateTransferring {
			c.state = stateAuthenticated
		}
	}()

	var dataConn net.Conn
	var err error
	if path == "" {
		dataConn, err = c.cmdDataConn(command)
	} else {
		dataConn, err = c.cmdDataConn(command, path)
	}
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		// Keep the control channel in sync regardless.
		_ = c.finishDataConn(dataConn)
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}

	if err := c.finishDataConn(dataConn); err != nil {
		return nil, err
	}
	return lines, nil
}

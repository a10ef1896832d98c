package ftp

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Reply represents a complete FTP server reply.
type Reply struct {
	// Code is the three-digit reply code (e.g. 220, 550).
	Code int

	// Message is the reply text with the code prefix stripped from the
	// opening and closing lines. Intermediate lines of a multi-line reply
	// are kept verbatim.
	Message string

	// Lines contains every raw line of the reply, as received.
	Lines []string
}

// Is1xx returns true if the reply is preliminary (1xx).
func (r *Reply) Is1xx() bool {
	return r.Code >= 100 && r.Code < 200
}

// Is2xx returns true if the reply signals success (2xx).
func (r *Reply) Is2xx() bool {
	return r.Code >= 200 && r.Code < 300
}

// Is3xx returns true if the reply is intermediate and more input is expected (3xx).
func (r *Reply) Is3xx() bool {
	return r.Code >= 300 && r.Code < 400
}

// Is4xx returns true if the reply signals a transient failure (4xx).
func (r *Reply) Is4xx() bool {
	return r.Code >= 400 && r.Code < 500
}

// Is5xx returns true if the reply signals a permanent failure (5xx).
func (r *Reply) Is5xx() bool {
	return r.Code >= 500 && r.Code < 600
}

// String returns the full reply as received, one line per element.
func (r *Reply) String() string {
	return strings.Join(r.Lines, "\n")
}

// readReply reads exactly one complete reply from br, consuming exactly the
// bytes that belong to it.
//
// Single-line form: "226 Transfer complete\r\n". Multi-line form opens with
// "XYZ-first line\r\n", carries zero or more unconstrained lines (message
// bodies may themselves begin with digit sequences), and closes with
// "XYZ final line\r\n" where XYZ matches the opening code and is followed by
// a space.
func readReply(br *bufio.Reader) (*Reply, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")

	code, ok := parseReplyCode(line)
	if !ok {
		return nil, &MalformedReplyError{Line: line}
	}

	lines := []string{line}
	if line[3] == ' ' {
		return &Reply{Code: code, Message: line[4:], Lines: lines}, nil
	}

	// Multi-line reply: collect lines until one opens with the same code
	// followed by a space.
	terminator := line[:3] + " "
	for {
		next, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &TruncatedReplyError{Code: code, Lines: lines}
			}
			return nil, err
		}
		next = strings.TrimRight(next, "\r\n")
		lines = append(lines, next)
		if strings.HasPrefix(next, terminator) {
			break
		}
	}

	return &Reply{Code: code, Message: replyMessage(lines), Lines: lines}, nil
}

// parseReplyCode extracts the three-digit code from a reply's opening line.
// The line must carry three ASCII digits followed by a space (single line) or
// a dash (multi-line opener), and the code must fall in the 100-599 range.
func parseReplyCode(line string) (int, bool) {
	if len(line) < 4 {
		return 0, false
	}
	for i := 0; i < 3; i++ {
		if line[i] < '0' || line[i] > '9' {
			return 0, false
		}
	}
	if line[3] != ' ' && line[3] != '-' {
		return 0, false
	}
	code := int(line[0]-'0')*100 + int(line[1]-'0')*10 + int(line[2]-'0')
	if code < 100 || code > 599 {
		return 0, false
	}
	return code, true
}

// replyMessage builds the message text of a multi-line reply: the code prefix
// is stripped from the opening and closing lines, intermediate lines stay
// verbatim.
func replyMessage(lines []string) string {
	parts := make([]string, 0, len(lines))
	parts = append(parts, lines[0][4:])
	for _, l := range lines[1 : len(lines)-1] {
		parts = append(parts, l)
	}
	parts = append(parts, lines[len(lines)-1][4:])
	return strings.Join(parts, "\n")
}

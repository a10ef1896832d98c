package ftp

import "fmt"

// MalformedReplyError reports a control-channel line whose three-digit reply
// code could not be parsed. Framing is broken at this point, so the session
// is no longer usable.
type MalformedReplyError struct {
	// Line is the offending line as received, without the trailing CRLF.
	Line string
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("ftp: malformed reply line %q", e.Line)
}

// TruncatedReplyError reports a multi-line reply whose terminating line never
// arrived before the control stream ended. Like a malformed reply, this is
// fatal to the session.
type TruncatedReplyError struct {
	// Code is the reply code from the opening line.
	Code int

	// Lines holds the lines received before the stream ended.
	Lines []string
}

func (e *TruncatedReplyError) Error() string {
	return fmt.Sprintf("ftp: reply %d truncated after %d line(s)", e.Code, len(e.Lines))
}

// UnexpectedReplyError reports a well-formed reply whose code does not match
// what the issued command expected. The session remains usable; the caller
// may issue further commands.
type UnexpectedReplyError struct {
	// Command is the FTP command that was sent (e.g. "STOR file.txt").
	Command string

	// Code is the numeric reply code received (e.g. 550).
	Code int

	// Message is the reply text received from the server.
	Message string

	// Want describes the expected code or class (e.g. "230", "2xx").
	Want string
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d, want %s)", e.Command, e.Message, e.Code, e.Want)
}

// Is2xx returns true if the reply code is in the 2xx range (success).
func (e *UnexpectedReplyError) Is2xx() bool {
	return e.Code >= 200 && e.Code < 300
}

// Is3xx returns true if the reply code is in the 3xx range (intermediate).
func (e *UnexpectedReplyError) Is3xx() bool {
	return e.Code >= 300 && e.Code < 400
}

// Is4xx returns true if the reply code is in the 4xx range (transient failure).
func (e *UnexpectedReplyError) Is4xx() bool {
	return e.Code >= 400 && e.Code < 500
}

// Is5xx returns true if the reply code is in the 5xx range (permanent failure).
func (e *UnexpectedReplyError) Is5xx() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsTemporary returns true if the failure is transient (4xx).
// This can be used to implement retry logic.
func (e *UnexpectedReplyError) IsTemporary() bool {
	return e.Is4xx()
}

// IsPermanent returns true if the failure is permanent (5xx).
func (e *UnexpectedReplyError) IsPermanent() bool {
	return e.Is5xx()
}

// AddressParseError reports a passive-mode reply that did not carry a
// decodable endpoint. The caller may retry the negotiation.
type AddressParseError struct {
	// Reply is the full reply text that was scanned.
	Reply string
}

func (e *AddressParseError) Error() string {
	return fmt.Sprintf("ftp: no passive endpoint in reply %q", e.Reply)
}

// SecureUpgradeError reports a failed switch to TLS. The control channel is
// closed; the caller must reconnect. The engine never falls back to
// plaintext.
type SecureUpgradeError struct {
	Err error
}

func (e *SecureUpgradeError) Error() string {
	return fmt.Sprintf("ftp: secure upgrade failed: %v", e.Err)
}

func (e *SecureUpgradeError) Unwrap() error {
	return e.Err
}

// LoginError reports rejected credentials. The session stays connected and
// the caller may retry with different credentials.
type LoginError struct {
	// Code is the reply code from the server (typically 530).
	Code int

	// Message is the reply text received from the server.
	Message string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("ftp: login rejected: %s (code %d)", e.Message, e.Code)
}

// TransferError reports a transfer that did not complete. The bytes already
// moved are counted, but the artifact on either side must be treated as
// partial and untrustworthy.
type TransferError struct {
	// Op is the transfer verb ("RETR", "STOR", "APPE").
	Op string

	// Path is the remote path of the transfer.
	Path string

	// BytesTransferred is the number of payload bytes moved before the
	// failure.
	BytesTransferred int64

	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("ftp: %s %s failed after %d bytes: %v", e.Op, e.Path, e.BytesTransferred, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// InvalidStateError reports an operation issued in a session state that does
// not permit it, e.g. a transfer before authentication. The illegal sequence
// is rejected locally instead of producing a confusing server-side error.
type InvalidStateError struct {
	// Op is the operation that was attempted.
	Op string

	// State is the session state the operation was attempted in.
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("ftp: %s not valid in state %s", e.Op, e.State)
}

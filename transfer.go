package ftp

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
)

// Retrieve downloads the remote file into w in binary mode.
//
// Example:
//
//	file, err := os.Create("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Retrieve("remote.txt", file)
func (c *Client) Retrieve(remotePath string, w io.Writer) error {
	return c.RetrieveAt(remotePath, w, 0)
}

// RetrieveAt downloads starting at the given byte offset (REST), which allows
// resuming an interrupted download.
func (c *Client) RetrieveAt(remotePath string, w io.Writer, offset int64) error {
	if err := c.Type(TypeBinary); err != nil {
		return err
	}
	if offset > 0 {
		if err := c.RestartAt(offset); err != nil {
			return err
		}
	}
	return c.runTransfer("RETR", remotePath, func(dataConn net.Conn) (int64, error) {
		return io.Copy(c.progressWriter(w), dataConn)
	})
}

// SimpleRetrieve downloads the remote file and returns its contents in
// memory. Convenient for small files; prefer Retrieve with a streaming sink
// for anything large.
func (c *Client) SimpleRetrieve(remotePath string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Retrieve(remotePath, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Store uploads data from r to the remote path in binary mode.
//
// Example:
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Store("remote.txt", file)
func (c *Client) Store(remotePath string, r io.Reader) error {
	if err := c.Type(TypeBinary); err != nil {
		return err
	}
	return c.runTransfer("STOR", remotePath, func(dataConn net.Conn) (int64, error) {
		return io.Copy(dataConn, c.progressReader(r))
	})
}

// Append appends data from r to the remote path (APPE), creating the file if
// it does not exist. Binary mode.
func (c *Client) Append(remotePath string, r io.Reader) error {
	if err := c.Type(TypeBinary); err != nil {
		return err
	}
	return c.runTransfer("APPE", remotePath, func(dataConn net.Conn) (int64, error) {
		return io.Copy(dataConn, c.progressReader(r))
	})
}

// StoreAt uploads starting at the given byte offset. Offsets greater than
// zero use APPE, which resumes by appending; true REST+STOR resume is less
// widely supported by servers.
func (c *Client) StoreAt(remotePath string, r io.Reader, offset int64) error {
	if offset > 0 {
		return c.Append(remotePath, r)
	}
	return c.Store(remotePath, r)
}

// RestartAt sets the restart marker (REST, RFC 3959) for the next transfer.
func (c *Client) RestartAt(offset int64) error {
	if err := c.requireState("REST", stateAuthenticated); err != nil {
		return err
	}
	_, err := c.cmdExpect(StatusRequestFilePending, "REST", strconv.FormatInt(offset, 10))
	return err
}

// runTransfer orchestrates one transfer: negotiate the data channel, issue
// the verb, run the payload loop, close the data stream, and consume the
// confirming reply. A payload failure yields a TransferError carrying the
// partial byte count; what then happens to the control channel is governed by
// the session's finish policy.
func (c *Client) runTransfer(verb, remotePath string, payload func(net.Conn) (int64, error)) error {
	if err := c.requireState(verb, stateAuthenticated); err != nil {
		return err
	}
	c.state = stateTransferring
	defer func() {
		if c.state == stateTransferring {
			c.state = stateAuthenticated
		}
	}()

	dataConn, err := c.cmdDataConn(verb, remotePath)
	if err != nil {
		return err
	}

	n, payloadErr := payload(dataConn)
	if payloadErr != nil {
		if c.finishPolicy == FinishPolicyAbandon {
			_ = dataConn.Close()
			c.setActiveDataConn(nil)
			c.state = stateDead
		} else {
			_ = c.finishDataConn(dataConn)
		}
		return &TransferError{Op: verb, Path: remotePath, BytesTransferred: n, Err: payloadErr}
	}

	// The completion reply can still report failure, e.g. 426 after the
	// server aborted its side; count the bytes for the caller either way.
	if err := c.finishDataConn(dataConn); err != nil {
		return &TransferError{Op: verb, Path: remotePath, BytesTransferred: n, Err: err}
	}
	return nil
}

// UploadFile uploads a local file to the server using Store.
func (c *Client) UploadFile(localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer f.Close()

	return c.Store(remotePath, f)
}

// DownloadFile downloads a remote file to the local filesystem using
// Retrieve. The partial local file is removed on failure.
func (c *Client) DownloadFile(remotePath, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	if err := c.Retrieve(remotePath, f); err != nil {
		f.Close()
		_ = os.Remove(localPath)
		return err
	}
	return f.Close()
}

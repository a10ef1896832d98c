package ftp

import "io"

// ProgressReader wraps an io.Reader and reports the running byte total via a
// callback. The transfer methods wrap their payload streams with it when the
// session carries a WithProgress callback; it can also be used directly on an
// upload source.
type ProgressReader struct {
	// Reader is the underlying reader.
	Reader io.Reader

	// Callback is invoked after each Read with the total bytes so far.
	Callback func(bytesTransferred int64)

	total int64
}

// Read implements io.Reader.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.total += int64(n)
	if pr.Callback != nil && n > 0 {
		pr.Callback(pr.total)
	}
	return n, err
}

// Total returns the number of bytes read so far.
func (pr *ProgressReader) Total() int64 {
	return pr.total
}

// ProgressWriter wraps an io.Writer and reports the running byte total via a
// callback. Wrap a download sink with it to observe Retrieve progress.
type ProgressWriter struct {
	// Writer is the underlying writer.
	Writer io.Writer

	// Callback is invoked after each Write with the total bytes so far.
	Callback func(bytesTransferred int64)

	total int64
}

// Write implements io.Writer.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += int64(n)
	if pw.Callback != nil && n > 0 {
		pw.Callback(pw.total)
	}
	return n, err
}

// Total returns the number of bytes written so far.
func (pw *ProgressWriter) Total() int64 {
	return pw.total
}

// progressReader wraps an upload source with the session's progress callback.
func (c *Client) progressReader(r io.Reader) io.Reader {
	if c.progress == nil {
		return r
	}
	return &ProgressReader{Reader: r, Callback: c.progress}
}

// progressWriter wraps a download sink with the session's progress callback.
func (c *Client) progressWriter(w io.Writer) io.Writer {
	if c.progress == nil {
		return w
	}
	return &ProgressWriter{Writer: w, Callback: c.progress}
}

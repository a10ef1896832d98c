package ftp

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreRetrieveRoundTrip(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	client := loginClient(t, srv)

	payload := bytes.Repeat([]byte("0123456789abcdef"), 512)
	if err := client.Store("blob.bin", bytes.NewReader(payload)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := client.SimpleRetrieve("blob.bin")
	if err != nil {
		t.Fatalf("SimpleRetrieve() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("retrieved %d bytes, stored %d; contents differ", len(got), len(payload))
	}
}

func TestRetrieveIntoWriter(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	srv.put("hello.txt", []byte("hello, world"))
	client := loginClient(t, srv)

	var buf bytes.Buffer
	if err := client.Retrieve("hello.txt", &buf); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if buf.String() != "hello, world" {
		t.Errorf("Retrieve() = %q, want %q", buf.String(), "hello, world")
	}
}

func TestRetrieveMissingFile(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	client := loginClient(t, srv)

	var buf bytes.Buffer
	err := client.Retrieve("ghost.txt", &buf)
	var unexpected *UnexpectedReplyError
	if !errors.As(err, &unexpected) {
		t.Fatalf("Retrieve() error = %v, want UnexpectedReplyError", err)
	}
	if unexpected.Code != 550 {
		t.Errorf("Code = %d, want 550", unexpected.Code)
	}

	// A refused transfer leaves the control channel usable.
	if err := client.Noop(); err != nil {
		t.Errorf("Noop() after refused RETR error = %v", err)
	}
}

func TestRetrieveAtOffset(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	srv.put("resume.bin", []byte("0123456789"))
	client := loginClient(t, srv)

	var buf bytes.Buffer
	if err := client.RetrieveAt("resume.bin", &buf, 4); err != nil {
		t.Fatalf("RetrieveAt() error = %v", err)
	}
	if buf.String() != "456789" {
		t.Errorf("RetrieveAt() = %q, want %q", buf.String(), "456789")
	}
}

func TestAppend(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	srv.put("log.txt", []byte("first\n"))
	client := loginClient(t, srv)

	if err := client.Append("log.txt", strings.NewReader("second\n")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if data, _ := srv.get("log.txt"); string(data) != "first\nsecond\n" {
		t.Errorf("appended file = %q, want %q", data, "first\nsecond\n")
	}
}

func TestStoreAt(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	srv.put("partial.bin", []byte("abc"))
	client := loginClient(t, srv)

	if err := client.StoreAt("partial.bin", strings.NewReader("def"), 3); err != nil {
		t.Fatalf("StoreAt() error = %v", err)
	}
	if data, _ := srv.get("partial.bin"); string(data) != "abcdef" {
		t.Errorf("resumed file = %q, want %q", data, "abcdef")
	}

	if err := client.StoreAt("fresh.bin", strings.NewReader("xyz"), 0); err != nil {
		t.Fatalf("StoreAt() at zero error = %v", err)
	}
	if data, _ := srv.get("fresh.bin"); string(data) != "xyz" {
		t.Errorf("fresh file = %q, want %q", data, "xyz")
	}
}

func TestInterruptedRetrieveReportsPartialCount(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t, withTruncatedRetr(4))
	srv.put("big.bin", []byte("0123456789"))
	client := loginClient(t, srv)

	var buf bytes.Buffer
	err := client.Retrieve("big.bin", &buf)

	var transferErr *TransferError
	if !errors.As(err, &transferErr) {
		t.Fatalf("Retrieve() error = %v, want TransferError", err)
	}
	if transferErr.BytesTransferred != 4 {
		t.Errorf("BytesTransferred = %d, want 4", transferErr.BytesTransferred)
	}
	var unexpected *UnexpectedReplyError
	if !errors.As(err, &unexpected) {
		t.Fatalf("TransferError should carry the completion reply, got %v", err)
	}
	if unexpected.Code != 426 {
		t.Errorf("completion Code = %d, want 426", unexpected.Code)
	}
	if !unexpected.IsTemporary() {
		t.Errorf("426 should report as transient")
	}

	// The 426 was consumed, so the control channel is still in lockstep.
	if err := client.Noop(); err != nil {
		t.Errorf("Noop() after interrupted RETR error = %v", err)
	}
}

// brokenWriter fails every write, standing in for a sink that gave out
// mid-download.
type brokenWriter struct{ err error }

func (w *brokenWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestFailedSinkWithDrainPolicy(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	srv.put("doc.txt", []byte("contents"))
	client := loginClient(t, srv)

	sinkErr := errors.New("disk full")
	err := client.Retrieve("doc.txt", &brokenWriter{err: sinkErr})

	var transferErr *TransferError
	if !errors.As(err, &transferErr) {
		t.Fatalf("Retrieve() error = %v, want TransferError", err)
	}
	if !errors.Is(err, sinkErr) {
		t.Errorf("TransferError should wrap the sink error, got %v", transferErr.Err)
	}

	// Drain keeps the control channel alive by consuming the completion
	// reply before surfacing the failure.
	if err := client.Noop(); err != nil {
		t.Errorf("Noop() after drained failure error = %v", err)
	}
}

func TestFailedSinkWithAbandonPolicy(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	srv.put("doc.txt", []byte("contents"))
	client := loginClient(t, srv, WithFinishPolicy(FinishPolicyAbandon))

	err := client.Retrieve("doc.txt", &brokenWriter{err: errors.New("disk full")})
	var transferErr *TransferError
	if !errors.As(err, &transferErr) {
		t.Fatalf("Retrieve() error = %v, want TransferError", err)
	}

	// Abandon gives up on the session entirely.
	err = client.Noop()
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("Noop() after abandoned failure error = %v, want InvalidStateError", err)
	}
	if stateErr.State != "dead" {
		t.Errorf("State = %q, want %q", stateErr.State, "dead")
	}
}

func TestUploadAndDownloadFile(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	client := loginClient(t, srv)

	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	if err := os.WriteFile(src, []byte("file payload"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := client.UploadFile(src, "remote.txt"); err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}

	dst := filepath.Join(dir, "dst.txt")
	if err := client.DownloadFile("remote.txt", dst); err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "file payload" {
		t.Errorf("downloaded %q, want %q", data, "file payload")
	}
}

func TestDownloadFileRemovesPartialOnFailure(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)
	client := loginClient(t, srv)

	dst := filepath.Join(t.TempDir(), "dst.txt")
	if err := client.DownloadFile("ghost.txt", dst); err == nil {
		t.Fatal("DownloadFile() of missing remote file should fail")
	}
	if _, err := os.Stat(dst); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial file should be removed, Stat() error = %v", err)
	}
}

func TestTransfersOverEPSV(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t, withEPSV())
	client := loginClient(t, srv)

	if err := client.Store("via-epsv.txt", strings.NewReader("extended passive")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, err := client.SimpleRetrieve("via-epsv.txt")
	if err != nil {
		t.Fatalf("SimpleRetrieve() error = %v", err)
	}
	if string(got) != "extended passive" {
		t.Errorf("round trip = %q, want %q", got, "extended passive")
	}
}

func TestTransfersWithEPSVDisabled(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t, withEPSV())
	client := loginClient(t, srv, WithDisableEPSV())

	if err := client.Store("via-pasv.txt", strings.NewReader("plain passive")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, err := client.SimpleRetrieve("via-pasv.txt")
	if err != nil {
		t.Fatalf("SimpleRetrieve() error = %v", err)
	}
	if string(got) != "plain passive" {
		t.Errorf("round trip = %q, want %q", got, "plain passive")
	}
}

func TestWithProgressReportsTransferTotals(t *testing.T) {
	t.Parallel()
	srv := newFakeServer(t)

	var totals []int64
	client := loginClient(t, srv, WithProgress(func(n int64) { totals = append(totals, n) }))

	payload := bytes.Repeat([]byte("p"), 4096)
	if err := client.Store("tracked.bin", bytes.NewReader(payload)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if len(totals) == 0 || totals[len(totals)-1] != int64(len(payload)) {
		t.Fatalf("upload totals = %v, want final %d", totals, len(payload))
	}
	for i := 1; i < len(totals); i++ {
		if totals[i] < totals[i-1] {
			t.Fatalf("upload totals not monotonic: %v", totals)
		}
	}

	// Each transfer counts from zero.
	totals = nil
	got, err := client.SimpleRetrieve("tracked.bin")
	if err != nil {
		t.Fatalf("SimpleRetrieve() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip corrupted: %d bytes in, %d out", len(payload), len(got))
	}
	if len(totals) == 0 || totals[len(totals)-1] != int64(len(payload)) {
		t.Fatalf("download totals = %v, want final %d", totals, len(payload))
	}
}

func TestProgressReader(t *testing.T) {
	t.Parallel()

	var calls []int64
	pr := &ProgressReader{
		Reader:   strings.NewReader("0123456789"),
		Callback: func(n int64) { calls = append(calls, n) },
	}

	data, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(data) != 10 {
		t.Errorf("read %d bytes, want 10", len(data))
	}
	if pr.Total() != 10 {
		t.Errorf("Total() = %d, want 10", pr.Total())
	}
	if len(calls) == 0 || calls[len(calls)-1] != 10 {
		t.Errorf("callback totals = %v, want final 10", calls)
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] < calls[i-1] {
			t.Errorf("callback totals not monotonic: %v", calls)
		}
	}
}

func TestProgressWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var last int64
	pw := &ProgressWriter{
		Writer:   &buf,
		Callback: func(n int64) { last = n },
	}

	if _, err := io.Copy(pw, strings.NewReader("payload")); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if buf.String() != "payload" {
		t.Errorf("written = %q, want %q", buf.String(), "payload")
	}
	if pw.Total() != int64(len("payload")) || last != pw.Total() {
		t.Errorf("Total() = %d, last callback = %d, want %d", pw.Total(), last, len("payload"))
	}
}

// Package ftp implements the client side of the File Transfer Protocol,
// with optional upgrade to an encrypted (FTPS) channel.
//
// # Overview
//
// The package is a protocol engine: it issues commands over a persistent
// control connection, parses multi-line replies into structured status codes,
// negotiates passive-mode data connections, and switches between plaintext
// and TLS byte streams transparently. It supports:
//   - Plain FTP connections
//   - Explicit TLS (AUTH TLS / RFC 4217)
//   - Implicit TLS (FTPS on port 990)
//   - TLS session reuse between the control and data connections
//   - Resumable transfers via REST
//   - Structured debug logging of the command/reply conversation
//
// # Basic Usage
//
// Connect to a plain FTP server:
//
//	client, err := ftp.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if err := client.Login("username", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
// # TLS Support
//
// Explicit TLS (recommended): the client connects on port 21 and upgrades the
// control channel with AUTH TLS before anything sensitive is sent:
//
//	client, err := ftp.Dial("ftp.example.com:21",
//	    ftp.WithExplicitTLS(&tls.Config{
//	        ServerName: "ftp.example.com",
//	    }),
//	)
//
// Implicit TLS: the connection is encrypted from the first byte, typically on
// port 990:
//
//	client, err := ftp.Dial("ftp.example.com:990",
//	    ftp.WithImplicitTLS(&tls.Config{
//	        ServerName: "ftp.example.com",
//	    }),
//	)
//
// Once a session is secured, every negotiated data connection is wrapped with
// the same TLS parameters. Servers that require TLS session reuse between the
// control and data connections (vsftpd, ProFTPD) work without extra
// configuration because both share one session cache.
//
// # File Transfers
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	if err := client.Store("remote.txt", file); err != nil {
//	    log.Fatal(err)
//	}
//
// Directory listings are delivered as raw lines: LIST output is not
// standardized across servers, so the engine guarantees verbatim delivery
// and leaves interpretation to the caller.
//
// # Error Handling
//
// Failures carry the raw reply code and message so callers can log them
// verbatim. Use errors.As to branch on the failure kind:
//
//	if err := client.Store("file.txt", reader); err != nil {
//	    var unexpected *ftp.UnexpectedReplyError
//	    if errors.As(err, &unexpected) && unexpected.IsTemporary() {
//	        // retry later
//	    }
//	}
//
// A Client must be driven by one goroutine at a time: the control channel
// answers exactly one reply per command, and interleaved commands would be
// attributed to the wrong caller. Run independent sessions in parallel
// instead; they share nothing.
package ftp

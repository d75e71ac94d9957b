// Package esl implements the inbound Event Socket Layer client used to
// drive a FreeSWITCH instance: password-authenticated TCP connection,
// one synchronous command/response round trip per request.
//
// The protocol is line-oriented with MIME-style framing: every message
// starts with a header block (Content-Type, optional Content-Length)
// terminated by a blank line, followed by Content-Length bytes of body.
// Commands are free-form lines terminated by a blank line.
package esl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"pbx-admin/internal/config"
	"pbx-admin/pkg/logger"
)

const bufferSize = 1024 << 6

const (
	contentTypeAuthRequest  = "auth/request"
	contentTypeCommandReply = "command/reply"
	contentTypeAPIResponse  = "api/response"
)

// Dialer opens authenticated ESL connections. Every control request gets
// its own connection; pooling can be introduced behind this type without
// touching callers.
type Dialer struct {
	addr           string
	password       string
	dialTimeout    time.Duration
	requestTimeout time.Duration
}

func NewDialer(cfg config.FreeswitchConfig) *Dialer {
	return &Dialer{
		addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		password:       cfg.Password,
		dialTimeout:    cfg.DialTimeout,
		requestTimeout: cfg.RequestTimeout,
	}
}

// Connect dials the switch and runs the auth handshake. It never returns
// an error: callers must check IsConnected on the returned Conn. A failed
// attempt yields a Conn that refuses all requests.
func (d *Dialer) Connect(ctx context.Context) *Conn {
	c := &Conn{requestTimeout: d.requestTimeout}

	deadline := time.Now().Add(d.dialTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	nc, err := net.DialTimeout("tcp", d.addr, time.Until(deadline))
	if err != nil {
		logger.From(ctx).Warn("esl dial failed", "addr", d.addr, "err", err)
		return c
	}

	c.conn = nc
	c.reader = bufio.NewReaderSize(nc, bufferSize)
	c.text = textproto.NewReader(c.reader)

	if err := c.authenticate(deadline, d.password); err != nil {
		logger.From(ctx).Warn("esl auth failed", "addr", d.addr, "err", err)
		_ = nc.Close()
		c.conn = nil
		return c
	}

	c.connected = true
	return c
}

// Conn is a single authenticated ESL connection. It is not safe for
// concurrent use; each request handling context owns exactly one.
type Conn struct {
	conn           net.Conn
	reader         *bufio.Reader
	text           *textproto.Reader
	connected      bool
	requestTimeout time.Duration
}

// IsConnected reports whether the connect attempt succeeded and the
// connection has not been closed since.
func (c *Conn) IsConnected() bool {
	return c.connected
}

// Close tears the connection down. Safe to call on a never-connected Conn.
func (c *Conn) Close() {
	c.connected = false
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Request sends one command line and blocks until the switch signals
// end-of-response. It returns the raw response body, or the reply text
// for commands that produce no body. Failures degrade to an empty
// string; the caller decides what the text means.
func (c *Conn) Request(ctx context.Context, command string) string {
	if !c.connected || c.conn == nil {
		return ""
	}
	// A stray CR/LF inside the command would desync the framing.
	if strings.ContainsAny(command, "\r\n") {
		logger.From(ctx).Warn("esl command rejected", "reason", "embedded newline")
		return ""
	}

	deadline := time.Now().Add(c.requestTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.Close()
		return ""
	}

	if _, err := fmt.Fprintf(c.conn, "%s\n\n", command); err != nil {
		logger.From(ctx).Warn("esl write failed", "err", err)
		c.Close()
		return ""
	}

	body, err := c.readResponse()
	if err != nil {
		logger.From(ctx).Warn("esl read failed", "err", err)
		c.Close()
		return ""
	}
	return body
}

func (c *Conn) authenticate(deadline time.Time, password string) error {
	if err := c.conn.SetDeadline(deadline); err != nil {
		return err
	}

	hdr, err := c.text.ReadMIMEHeader()
	if err != nil {
		return err
	}
	if hdr.Get("Content-Type") != contentTypeAuthRequest {
		return fmt.Errorf("unexpected greeting %q", hdr.Get("Content-Type"))
	}

	if _, err := fmt.Fprintf(c.conn, "auth %s\n\n", password); err != nil {
		return err
	}

	hdr, err = c.text.ReadMIMEHeader()
	if err != nil {
		return err
	}
	if reply := hdr.Get("Reply-Text"); !strings.HasPrefix(reply, "+OK") {
		return fmt.Errorf("auth rejected: %q", reply)
	}
	return nil
}

// readResponse consumes one framed message. api/response carries the
// payload in the body; command/reply carries it in Reply-Text.
func (c *Conn) readResponse() (string, error) {
	hdr, err := c.text.ReadMIMEHeader()
	if err != nil {
		return "", err
	}

	var body string
	if v := hdr.Get("Content-Length"); v != "" {
		length, err := strconv.Atoi(v)
		if err != nil {
			return "", err
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(c.reader, buf); err != nil {
			return "", err
		}
		body = string(buf)
	}

	switch hdr.Get("Content-Type") {
	case contentTypeAPIResponse:
		return body, nil
	case contentTypeCommandReply:
		if body != "" {
			return body, nil
		}
		return hdr.Get("Reply-Text"), nil
	default:
		return body, nil
	}
}

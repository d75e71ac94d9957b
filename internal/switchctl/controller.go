// Package switchctl is the switch-control facade: one operation per
// administrative ESL command, each pairing the transport with the parser
// for that command's response shape.
package switchctl

import (
	"context"

	"pbx-admin/pkg/logger"
)

// Transport is one live administrative channel to the switch.
// internal/esl provides the real implementation.
type Transport interface {
	IsConnected() bool
	Request(ctx context.Context, command string) string
	Close()
}

// DialFunc opens a fresh Transport. Every operation dials its own
// connection; connect failures are reported through IsConnected, never
// as errors.
type DialFunc func(ctx context.Context) Transport

// Result is the uniform operation outcome surfaced to the HTTP layer.
// Callers must branch on Status: an empty Data with Status true is a
// valid outcome (e.g. zero registrations).
type Result struct {
	Status  bool   `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

const msgNotConnected = "switch not connected"
const msgFetched = "Successfully fetched"

var disconnected = Result{Status: false, Message: msgNotConnected}

type Controller struct {
	dial DialFunc
}

func NewController(dial DialFunc) *Controller {
	return &Controller{dial: dial}
}

// ReloadConfiguration issues `reloadxml`.
func (c *Controller) ReloadConfiguration(ctx context.Context) Result {
	return c.runOK(ctx, cmdReloadXML)
}

// ReloadAccessList issues `reloadacl`.
func (c *Controller) ReloadAccessList(ctx context.Context) Result {
	return c.runOK(ctx, cmdReloadACL)
}

// Shutdown asks the switch to stop. The caller is expected to gate this
// behind the strictest role.
func (c *Controller) Shutdown(ctx context.Context) Result {
	return c.runOK(ctx, cmdShutdown)
}

// ShowRegistrations returns the live SIP registrations as parsed rows,
// along with the full table for callers that need the header set or the
// raw text. An empty table is a success, not an error.
func (c *Controller) ShowRegistrations(ctx context.Context) (RegistrationTable, Result) {
	conn := c.dial(ctx)
	defer conn.Close()
	if !conn.IsConnected() {
		return RegistrationTable{Rows: []map[string]string{}}, disconnected
	}

	raw := conn.Request(ctx, cmdShowRegistrations.line)
	table := parseRegistrations(raw)
	if table.Dropped > 0 {
		logger.From(ctx).Warn("registrations rows dropped",
			"dropped", table.Dropped, "kept", len(table.Rows))
	}
	return table, Result{Status: true, Data: table.Rows, Message: msgFetched}
}

// SofiaStatus lists the SIP stack's profiles and gateways.
func (c *Controller) SofiaStatus(ctx context.Context) Result {
	conn := c.dial(ctx)
	defer conn.Close()
	if !conn.IsConnected() {
		return disconnected
	}

	raw := conn.Request(ctx, cmdSofiaStatus.line)
	entries, dropped := parseSofiaStatus(raw)
	if dropped > 0 {
		logger.From(ctx).Warn("sofia status lines dropped",
			"dropped", dropped, "kept", len(entries))
	}
	return Result{Status: true, Data: entries, Message: okToken}
}

// Status returns the switch's general status as key/value pairs.
func (c *Controller) Status(ctx context.Context) Result {
	conn := c.dial(ctx)
	defer conn.Close()
	if !conn.IsConnected() {
		return disconnected
	}

	raw := conn.Request(ctx, cmdStatus.line)
	info := parseStatus(raw)
	return Result{Status: true, Data: info.Values, Message: okToken}
}

// SubscribeAllEvents issues a one-shot `event json ALL` and returns
// whatever the switch replied before the call returned. This is a
// diagnostics probe, not a long-lived subscription.
func (c *Controller) SubscribeAllEvents(ctx context.Context) Result {
	conn := c.dial(ctx)
	defer conn.Close()
	if !conn.IsConnected() {
		return disconnected
	}

	raw := conn.Request(ctx, cmdEventsAll.line)
	return Result{Status: true, Data: raw, Message: okToken}
}

// Originate fires the dial command for an already-authorized call. The
// switch's own response body is not parsed: origination is
// fire-and-forget at this layer.
func (c *Controller) Originate(ctx context.Context, src, dst string) Result {
	conn := c.dial(ctx)
	defer conn.Close()
	if !conn.IsConnected() {
		return disconnected
	}

	conn.Request(ctx, originateCommand(src, dst))
	return Result{Status: true, Message: "success."}
}

func (c *Controller) runOK(ctx context.Context, cmd controlCommand) Result {
	conn := c.dial(ctx)
	defer conn.Close()
	if !conn.IsConnected() {
		return disconnected
	}

	raw := conn.Request(ctx, cmd.line)
	return Result{Status: true, Message: normalizeOK(raw, cmd.okMarker)}
}

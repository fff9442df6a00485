// Package socketio forwards task graph events to a socket.io server.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/events"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event every task graph event is emitted as.
const EventName = "garden:event"

// Options configure a Forwarder.
type Options struct {
	URL                string
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Forwarder is an events.Observer that emits events over socket.io.
type Forwarder struct {
	io *socket.Socket
}

var _ events.Observer = (*Forwarder)(nil)

// Connect dials the server and waits until the namespace is connected.
func Connect(ctx context.Context, o Options) (*Forwarder, error) {
	logger := ctxlog.FromContext(ctx).With("observer", "socketio", "url", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Namespace == "" {
		o.Namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Event forwarder connected", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	timer := time.NewTimer(o.Timeout)
	defer timer.Stop()
	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("connecting to %s: %w", o.URL, err)
		}
		return &Forwarder{io: io}, nil
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("connecting to %s: timed out after %s", o.URL, o.Timeout)
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	}
}

// Notify implements events.Observer.
func (f *Forwarder) Notify(e events.Event) {
	f.io.Emit(EventName, Payload(e))
}

// Close disconnects from the server.
func (f *Forwarder) Close() {
	f.io.Disconnect()
}

// Payload converts an event into the JSON-friendly map that is emitted.
func Payload(e events.Event) map[string]any {
	p := map[string]any{
		"type":    string(e.Type),
		"batchId": e.BatchID,
		"time":    e.Time.UTC().Format(time.RFC3339Nano),
	}
	if e.Key != "" {
		p["key"] = e.Key
		p["name"] = e.Name
		p["taskType"] = e.TaskType
		p["description"] = e.Description
		p["version"] = e.Version
	}
	if e.Duration > 0 {
		p["durationMs"] = e.Duration.Milliseconds()
	}
	if e.Error != "" {
		p["error"] = e.Error
	}
	return p
}

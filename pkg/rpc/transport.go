// Package rpc implements the scripting service over HTTP. Commands are
// posted to the host as JSON-RPC requests; host events arrive through the
// event bus.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dukex/scriptpanel/pkg/eventbus"
	"github.com/dukex/scriptpanel/pkg/events"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/gofiber/fiber/v3/client"
)

const (
	DefaultTimeout = 30 * time.Second

	jsonRPCVersion = "2.0"
	rpcPath        = "/rpc"
)

var (
	ErrHostStatus       = errors.New("scripting host returned an error status")
	ErrInvalidResponse  = errors.New("invalid response from scripting host")
	ErrUnsupportedEvent = errors.New("unsupported event")
)

// HostError is an error reported by the host for a single call.
type HostError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host error %d: %s", e.Code, e.Message)
}

func IsHostError(err error) bool {
	var hostErr *HostError

	return errors.As(err, &hostErr)
}

// Request is the body posted to the host.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	// Generation is echoed back in execution finished events.
	Generation uint64 `json:"generation,omitempty"`
}

// Response is the body the host answers with.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *HostError      `json:"error,omitempty"`
}

// Transport is a protocol.ScriptingService backed by an HTTP host.
type Transport struct {
	client   *client.Client
	endpoint string
	events   eventbus.EventSubscriber
	logger   *slog.Logger
	timeout  time.Duration
	nextID   atomic.Uint64
}

type Option func(*Transport)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

func WithTimeout(timeout time.Duration) Option {
	return func(t *Transport) { t.timeout = timeout }
}

// NewTransport creates a transport posting to hostURL + "/rpc". Event
// handlers are registered on subscriber.
func NewTransport(hostURL string, subscriber eventbus.EventSubscriber, opts ...Option) *Transport {
	t := &Transport{
		client:   client.New(),
		endpoint: strings.TrimRight(hostURL, "/") + rpcPath,
		events:   subscriber,
		logger:   slog.Default(),
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.logger = t.logger.With("module", "rpc_transport")

	return t
}

func (t *Transport) Endpoint() string {
	return t.endpoint
}

func (t *Transport) SendToService(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	params := args
	if params == nil {
		params = []any{}
	}

	req := Request{
		JSONRPC: jsonRPCVersion,
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	if generation, ok := protocol.GenerationFromContext(ctx); ok {
		req.Generation = generation
	}

	resp, err := t.client.Post(t.endpoint, client.Config{
		Ctx:     ctx,
		Timeout: t.timeout,
		Header:  map[string]string{"Accept": "application/json"},
		Body:    req,
	})
	if err != nil {
		t.logger.ErrorContext(ctx, "Scripting host request failed", "method", method, "error", err)

		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Close()

	return t.decode(method, req.ID, resp.StatusCode(), resp.Body())
}

func (t *Transport) decode(method string, id uint64, status int, body []byte) (json.RawMessage, error) {
	var res Response

	if len(body) > 0 {
		if err := json.Unmarshal(body, &res); err != nil {
			if status >= 300 {
				return nil, fmt.Errorf("%w: %s answered %d", ErrHostStatus, method, status)
			}

			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, method, err)
		}
	}

	if res.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, res.Error)
	}

	if status >= 300 {
		return nil, fmt.Errorf("%w: %s answered %d", ErrHostStatus, method, status)
	}

	if res.ID != 0 && res.ID != id {
		return nil, fmt.Errorf("%w: %s: response id %d does not match request id %d", ErrInvalidResponse, method, res.ID, id)
	}

	// the body is copied since the client reuses its buffers
	return append(json.RawMessage(nil), res.Result...), nil
}

// RegisterEventHandler routes events of the given name from the event bus to
// handler.
func (t *Transport) RegisterEventHandler(event string, handler protocol.EventHandler) {
	eventType := events.EventType(event)

	err := t.events.Handle(eventType, func(ctx context.Context, e eventbus.Event) error {
		payload, err := EventPayload(e)
		if err != nil {
			return err
		}

		return handler(ctx, payload)
	})
	if err != nil {
		t.logger.Error("Failed to register event handler", "event", event, "error", err)
	}
}

// EventPayload extracts the scripting event payload from a bus event.
func EventPayload(e eventbus.Event) (json.RawMessage, error) {
	switch event := e.(type) {
	case *events.ExecutionFinished:
		return json.Marshal(event.Info)
	case *events.ConsoleOutput:
		return json.Marshal(struct {
			Text   string `json:"text"`
			Stderr bool   `json:"stderr"`
		}{Text: event.Text, Stderr: event.Stderr})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEvent, e)
	}
}

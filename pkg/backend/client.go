// Package backend provides a typed client for the scripting service of the host.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/scriptpanel/pkg/metrics"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/otelhelper"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Client wraps a protocol.ScriptingService with typed methods.
type Client struct {
	service protocol.ScriptingService
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(service protocol.ScriptingService, opts ...Option) *Client {
	c := &Client{
		service: service,
		logger:  slog.Default(),
		tracer:  otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Service returns the underlying scripting service.
//
// nolint:ireturn
func (c *Client) Service() protocol.ScriptingService {
	return c.service
}

func (c *Client) call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	attrs := []attribute.KeyValue{attribute.String(otelhelper.MethodKey, method)}
	if generation, ok := protocol.GenerationFromContext(ctx); ok {
		attrs = append(attrs, attribute.Int64(otelhelper.GenerationKey, int64(generation))) //nolint:gosec
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "scripting."+method, attrs...)
	defer span.End()

	if c.metrics != nil {
		c.metrics.Commands.WithLabelValues(method).Inc()
	}

	c.logger.DebugContext(ctx, "Sending command to scripting service", "method", method)

	result, err := c.service.SendToService(ctx, method, args...)
	if err != nil {
		otelhelper.SetError(span, err, attrs...)

		if c.metrics != nil {
			c.metrics.CommandErrors.WithLabelValues(method).Inc()
		}

		c.logger.ErrorContext(ctx, "Scripting service call failed", "method", method, "error", err)

		return nil, &CallError{Method: method, Err: err}
	}

	return result, nil
}

func decode[T any](method string, raw json.RawMessage) (T, error) {
	var value T

	err := json.Unmarshal(raw, &value)
	if err != nil {
		return value, &CallError{Method: method, Err: fmt.Errorf("%w: %w", ErrDecodeResult, err)}
	}

	return value, nil
}

// RunScript runs the full script in a fresh session. The result arrives as a
// python-execution-finished event.
func (c *Client) RunScript(ctx context.Context, script string) error {
	_, err := c.call(ctx, protocol.MethodRunScript, script)

	return err
}

// RunInExistingSession runs code in the current session, starting one if
// necessary. The result arrives as a python-execution-finished event.
func (c *Client) RunInExistingSession(ctx context.Context, code string) error {
	_, err := c.call(ctx, protocol.MethodRunInExistingSession, code)

	return err
}

func (c *Client) KillSession(ctx context.Context) (models.KillSessionInfo, error) {
	raw, err := c.call(ctx, protocol.MethodKillSession)
	if err != nil {
		return models.KillSessionInfo{}, err
	}

	return decode[models.KillSessionInfo](protocol.MethodKillSession, raw)
}

// StartInteractive starts a new session so that the next run does not pay the
// interpreter startup cost.
func (c *Client) StartInteractive(ctx context.Context) error {
	_, err := c.call(ctx, protocol.MethodStartInteractive)

	return err
}

func (c *Client) UpdateExecutableSelection(ctx context.Context, id string) error {
	_, err := c.call(ctx, protocol.MethodUpdateExecutableSelection, id)

	return err
}

func (c *Client) GetExecutableOptionsList(ctx context.Context, id string) ([]models.ExecutableOption, error) {
	raw, err := c.call(ctx, protocol.MethodGetExecutableOptionsList, id)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 || string(raw) == "null" {
		return []models.ExecutableOption{}, nil
	}

	return decode[[]models.ExecutableOption](protocol.MethodGetExecutableOptionsList, raw)
}

// SendLastConsoleOutput asks the host to replay the console output of the
// last node execution through console-output events.
func (c *Client) SendLastConsoleOutput(ctx context.Context) error {
	_, err := c.call(ctx, protocol.MethodSendLastConsoleOutput)

	return err
}

// GetLanguageServerConfig returns the language server configuration for the
// executable. Hosts answer with either a JSON object or a JSON encoded string
// containing one; both are returned as the object. Anything that is not a
// JSON document fails with ErrDecodeResult.
func (c *Client) GetLanguageServerConfig(ctx context.Context, id string) (json.RawMessage, error) {
	raw, err := c.call(ctx, protocol.MethodGetLanguageServerConfig, id)
	if err != nil {
		return nil, err
	}

	var encoded string
	if json.Unmarshal(raw, &encoded) == nil {
		raw = json.RawMessage(encoded)
	}

	if !json.Valid(raw) {
		return nil, &CallError{
			Method: protocol.MethodGetLanguageServerConfig,
			Err:    fmt.Errorf("%w: language server config is not a JSON document", ErrDecodeResult),
		}
	}

	return raw, nil
}

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/scriptpanel/pkg/eventbus"
	"github.com/dukex/scriptpanel/pkg/events"
	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/dukex/scriptpanel/pkg/services"
	"github.com/dukex/scriptpanel/pkg/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const publishTimeout = 5 * time.Second

type APIHandlers struct {
	panel     *services.Panel
	validator *validator.Validate
	publisher eventbus.EventPublisher
	nodeID    string
}

// NewAPIHandlers creates the handlers of a panel. publisher may be nil when
// the host delivers events in process.
func NewAPIHandlers(
	panel *services.Panel,
	validator *validator.Validate,
	publisher eventbus.EventPublisher,
	nodeID string,
) *APIHandlers {
	return &APIHandlers{
		panel:     panel,
		validator: validator,
		publisher: publisher,
		nodeID:    nodeID,
	}
}

func (h *APIHandlers) state(c fiber.Ctx, status int) error {
	return c.Status(status).JSON(NewStateResponse(h.panel.State().Snapshot()))
}

func toggle(c fiber.Ctx) (bool, error) {
	value := c.Query("toggle")
	if value == "" {
		return false, nil
	}

	return strconv.ParseBool(value)
}

func (h *APIHandlers) GetState(c fiber.Ctx) error {
	return h.state(c, fiber.StatusOK)
}

func (h *APIHandlers) RunAll(c fiber.Ctx) error {
	var req RunAllRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	toggleRun, err := toggle(c)
	if err != nil {
		return badRequest(c, "Invalid toggle parameter")
	}

	controller, err := h.panel.Session()
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Script != nil {
		h.panel.SetScript(*req.Script)
	}

	if toggleRun {
		err = controller.ToggleRunAll(c.Context(), h.panel.Script())
	} else {
		err = controller.RunAll(c.Context(), h.panel.Script())
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return h.state(c, fiber.StatusAccepted)
}

func (h *APIHandlers) RunSelection(c fiber.Ctx) error {
	var req RunSelectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	toggleRun, err := toggle(c)
	if err != nil {
		return badRequest(c, "Invalid toggle parameter")
	}

	controller, err := h.panel.Session()
	if err != nil {
		return handleServiceError(c, err)
	}

	if toggleRun {
		err = controller.ToggleRunSelection(c.Context(), req.Selection)
	} else {
		err = controller.RunSelection(c.Context(), req.Selection)
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return h.state(c, fiber.StatusAccepted)
}

func (h *APIHandlers) Cancel(c fiber.Ctx) error {
	controller, err := h.panel.Session()
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := controller.Cancel(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	return h.state(c, fiber.StatusOK)
}

func (h *APIHandlers) KillSession(c fiber.Ctx) error {
	controller, err := h.panel.Session()
	if err != nil {
		return handleServiceError(c, err)
	}

	ok, err := controller.KillSession(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(KillResponse{
		StateResponse: NewStateResponse(h.panel.State().Snapshot()),
		Success:       ok,
	})
}

func (h *APIHandlers) Reset(c fiber.Ctx) error {
	controller, err := h.panel.Session()
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := controller.Reset(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	return h.state(c, fiber.StatusOK)
}

func (h *APIHandlers) PrintVariable(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Variable name is required")
	}

	controller, err := h.panel.Session()
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := controller.PrintVariable(c.Context(), name); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) SelectExecutable(c fiber.Ctx) error {
	var req SelectExecutableRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.panel.SelectExecutable(c.Context(), req.ID); err != nil {
		return handleServiceError(c, err)
	}

	return h.state(c, fiber.StatusOK)
}

func (h *APIHandlers) GetExecutables(c fiber.Ctx) error {
	options, err := h.panel.ExecutableOptions(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executables": options,
		"selected":    h.panel.State().Snapshot().ExecutableSelection,
	})
}

func (h *APIHandlers) Complete(c fiber.Ctx) error {
	var req CompletionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(fiber.Map{
		"suggestions": h.panel.Complete(req.Line, req.LineNumber, req.Column),
	})
}

func (h *APIHandlers) GetConsole(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"lines": h.panel.Console().Lines(),
	})
}

func (h *APIHandlers) ClearConsole(c fiber.Ctx) error {
	h.panel.Console().Clear()

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetSettings(c fiber.Ctx) error {
	return c.JSON(SettingsResponse{
		NodeSettings: h.panel.Settings(),
		Dirty:        h.panel.Dirty(),
	})
}

func (h *APIHandlers) UpdateSettings(c fiber.Ctx) error {
	var req SettingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	settings := models.NodeSettings{
		Script:              req.Script,
		ExecutableSelection: req.ExecutableSelection,
	}

	if err := h.panel.ApplySettings(c.Context(), settings); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(SettingsResponse{
		NodeSettings: h.panel.Settings(),
		Dirty:        h.panel.Dirty(),
	})
}

func (h *APIHandlers) GetLanguageServerConfig(c fiber.Ctx) error {
	controller, err := h.panel.Session()
	if err != nil {
		return handleServiceError(c, err)
	}

	config, err := controller.LanguageServerConfig(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return c.Send(config)
}

func (h *APIHandlers) ReloadInitialData(c fiber.Ctx) error {
	if err := h.panel.ReloadInitialData(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ReceiveHostEvent publishes an event pushed by the host to the event bus.
func (h *APIHandlers) ReceiveHostEvent(c fiber.Ctx) error {
	var req HostEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var event eventbus.Event

	switch req.Event {
	case protocol.EventExecutionFinished:
		var info models.ExecutionInfo
		if err := json.Unmarshal(req.Payload, &info); err != nil {
			return badRequest(c, "Invalid execution info: "+err.Error())
		}

		event = events.NewExecutionFinished(h.nodeID, info)
	case protocol.EventConsoleOutput:
		var output session.ConsoleOutput
		if err := json.Unmarshal(req.Payload, &output); err != nil {
			return badRequest(c, "Invalid console output: "+err.Error())
		}

		event = events.NewConsoleOutput(h.nodeID, output.Text, output.Stderr)
	}

	// The request context is recycled once the handler returns, while the
	// bus may deliver asynchronously.
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := h.publisher.Publish(ctx, h.nodeID, event); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	panelCheck, ok := h.panel.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Script panel is unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if ok {
		status = "healthy"
		message = "Script panel is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"panel": panelCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

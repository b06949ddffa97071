// Package initialdata loads and validates the data the host supplies when
// the panel opens: input and output ports, flow variables, connection state
// and executable options.
package initialdata

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/dukex/scriptpanel/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// MethodGetInitialData is the host method returning the initial data.
const MethodGetInitialData = "getInitialData"

//go:embed schema.json
var schema []byte

var schemaLoader = gojsonschema.NewBytesLoader(schema)

var ErrInvalidInitialData = errors.New("invalid initial data")

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInitialData, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInitialData
}

// Validate checks raw against the initial data schema.
func Validate(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInitialData, err)
	}

	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return &ValidationError{Errors: errs}
	}

	return nil
}

// Parse validates raw and decodes it. A missing executable options list
// decodes as empty.
func Parse(raw []byte) (models.InitialData, error) {
	if err := Validate(raw); err != nil {
		return models.InitialData{}, err
	}

	var data models.InitialData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.InitialData{}, fmt.Errorf("%w: %w", ErrInvalidInitialData, err)
	}

	if data.ExecutableOptionsList == nil {
		data.ExecutableOptionsList = []models.ExecutableOption{}
	}

	return data, nil
}

// LoadFile reads and parses an initial data document from path.
func LoadFile(path string) (models.InitialData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.InitialData{}, fmt.Errorf("failed to read initial data: %w", err)
	}

	return Parse(raw)
}

// FileService serves initial data from a JSON file.
type FileService struct {
	Path string
}

func (s FileService) GetInitialData(_ context.Context) (models.InitialData, error) {
	return LoadFile(s.Path)
}

// HostService fetches initial data from the scripting host.
type HostService struct {
	Service protocol.ScriptingService
}

func (s HostService) GetInitialData(ctx context.Context) (models.InitialData, error) {
	raw, err := s.Service.SendToService(ctx, MethodGetInitialData)
	if err != nil {
		return models.InitialData{}, fmt.Errorf("failed to fetch initial data: %w", err)
	}

	return Parse(raw)
}

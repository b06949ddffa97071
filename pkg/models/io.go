package models

// InputOutputSubItem is a column of a table port or a single flow variable.
type InputOutputSubItem struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Supported *bool  `json:"supported,omitempty"`
	CodeAlias string `json:"codeAlias,omitempty"`
}

// IsSupported reports whether the item can be used from a script. Items that
// do not carry the flag are supported.
func (s InputOutputSubItem) IsSupported() bool {
	return s.Supported == nil || *s.Supported
}

// InputOutputModel describes one input or output port (or the flow variables).
type InputOutputModel struct {
	Name                     string               `json:"name"`
	CodeAlias                string               `json:"codeAlias"`
	RequiredImport           string               `json:"requiredImport,omitempty"`
	MultiSelection           bool                 `json:"multiSelection,omitempty"`
	SubItemCodeAliasTemplate string               `json:"subItemCodeAliasTemplate,omitempty"`
	SubItems                 []InputOutputSubItem `json:"subItems,omitempty"`
}

// PortConnectionStatus is the health of the connection into an input port.
type PortConnectionStatus string

const (
	PortConnectionOK                   PortConnectionStatus = "OK"
	PortConnectionUnexecutedConnection PortConnectionStatus = "UNEXECUTED_CONNECTION"
	PortConnectionMissingConnection    PortConnectionStatus = "MISSING_CONNECTION"
)

// InputConnectionInfo is reported for every input port.
type InputConnectionInfo struct {
	Status     PortConnectionStatus `json:"status"`
	IsOptional bool                 `json:"isOptional"`
}

// InitialData is fetched once when the panel loads.
type InitialData struct {
	InputObjects          []InputOutputModel    `json:"inputObjects"`
	OutputObjects         []InputOutputModel    `json:"outputObjects"`
	FlowVariables         InputOutputModel      `json:"flowVariables"`
	InputConnectionInfo   []InputConnectionInfo `json:"inputConnectionInfo"`
	ExecutableOptionsList []ExecutableOption    `json:"executableOptionsList"`
	HasPreview            bool                  `json:"hasPreview"`
}

// NodeSettings are persisted by the settings service.
type NodeSettings struct {
	Script              string `json:"script"`
	ExecutableSelection string `json:"executableSelection"`
}

// ConsoleLine is written to the output console. Exactly one field is set.
type ConsoleLine struct {
	Text    string `json:"text,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

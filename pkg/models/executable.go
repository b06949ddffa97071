package models

// ExecutableOptionType classifies where an executable option comes from.
type ExecutableOptionType string

const (
	ExecutableOptionPrefBundled ExecutableOptionType = "PREF_BUNDLED"
	ExecutableOptionPrefConda   ExecutableOptionType = "PREF_CONDA"
	ExecutableOptionPrefManual  ExecutableOptionType = "PREF_MANUAL"
	ExecutableOptionCondaEnvVar ExecutableOptionType = "CONDA_ENV_VAR"
	ExecutableOptionStringVar   ExecutableOptionType = "STRING_VAR"
	ExecutableOptionMissingVar  ExecutableOptionType = "MISSING_VAR"
)

// ExecutableOption is one backend execution environment the user can select.
type ExecutableOption struct {
	Type             ExecutableOptionType `json:"type"`
	ID               string               `json:"id"`
	PythonExecutable string               `json:"pythonExecutable,omitempty"`
	CondaEnvName     string               `json:"condaEnvName,omitempty"`
	CondaEnvDir      string               `json:"condaEnvDir,omitempty"`
}

// DefaultExecutableID selects the executable configured in the preferences.
const DefaultExecutableID = ""

// FindExecutableOption returns the option with the given id.
func FindExecutableOption(options []ExecutableOption, id string) (ExecutableOption, bool) {
	for _, option := range options {
		if option.ID == id {
			return option, true
		}
	}

	return ExecutableOption{}, false
}

// Package completion derives editor auto-completion suggestions for input
// columns and flow variables from the schema supplied when the panel loads.
//
// Candidates are computed once per schema; each request only filters by the
// typed prefix and decides which quote characters to insert around the label
// so that the result is a balanced string literal in the script.
package completion

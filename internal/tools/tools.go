// Package tools contains the rule-based advisory tools: elective course
// recommendation and program comparison.
package tools

// Tool is an opaque string-to-string advisory capability. New tools plug in
// without touching the router's control flow.
type Tool interface {
	// Name identifies the tool.
	Name() string
	// Run produces free-text advice for the raw user message.
	Run(query string) (string, error)
}

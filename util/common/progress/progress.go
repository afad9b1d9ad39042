// Package progress provides progress reporting functionality
package progress

import "fmt"

// Reporter defines the interface for reporting progress of a pipeline
// run to an attached console. Steps report their lifecycle through it;
// structured logging stays with zerolog.
type Reporter interface {
	// Start begins progress reporting with an initial message
	Start(message string)

	// Step reports a new step in the operation
	Step(message string)

	// Warn reports a non-fatal condition worth operator attention
	Warn(message string)

	// Error reports an error condition
	Error(message string)

	// Success reports successful completion
	Success(message string)
}

// ConsoleReporter implements Reporter by printing messages to console
type ConsoleReporter struct{}

// NewConsoleReporter creates a new ConsoleReporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func (r *ConsoleReporter) Start(message string) {
	fmt.Printf("⚡ %s...\n", message)
}

func (r *ConsoleReporter) Step(message string) {
	fmt.Printf("  ▶ %s...\n", message)
}

func (r *ConsoleReporter) Warn(message string) {
	fmt.Printf("  ⚠ %s\n", message)
}

func (r *ConsoleReporter) Error(message string) {
	fmt.Printf("  ❌ %s\n", message)
}

func (r *ConsoleReporter) Success(message string) {
	fmt.Printf("  ✅ %s\n", message)
}

// NopReporter implements Reporter with no-op operations
type NopReporter struct{}

// NewNopReporter creates a new NopReporter
func NewNopReporter() *NopReporter {
	return &NopReporter{}
}

func (r *NopReporter) Start(message string)   {}
func (r *NopReporter) Step(message string)    {}
func (r *NopReporter) Warn(message string)    {}
func (r *NopReporter) Error(message string)   {}
func (r *NopReporter) Success(message string) {}

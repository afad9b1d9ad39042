package config

import "time"

// GlobalFlags contains common flags used across commands
type GlobalFlags struct {
	// Run identity and inputs
	ProjectID     string
	PipelineFile  string
	WorkDir       string
	Substitutions []string

	// Credentials for object storage and registries
	CredentialsPath    string
	CredentialsProfile string

	// Total wall-clock bound for a run; zero means the pipeline
	// description's timeout applies
	Timeout time.Duration

	Debug   bool
	NoColor bool
}

// Global is the shared instance of GlobalFlags
var Global = GlobalFlags{}

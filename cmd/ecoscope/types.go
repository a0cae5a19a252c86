package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Query   string `json:"query,omitempty"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIScriptResult wraps the final value of a script.
type CLIScriptResult struct {
	Script string `json:"script"`
	Value  any    `json:"value"`
}

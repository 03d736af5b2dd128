// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ProcessStatus records the outcome of digitizing one recipe image.
type ProcessStatus string

const (
	ProcessDone    ProcessStatus = "converted"
	ProcessFailed  ProcessStatus = "failed"
	ProcessTimeout ProcessStatus = "timeout"
)

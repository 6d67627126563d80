package script

import "errors"

var (
	// ErrRunnerClosed is returned when running a script on a closed runner.
	ErrRunnerClosed = errors.New("script runner is closed")

	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script timed out")
)

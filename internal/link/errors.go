package link

import "fmt"

// Stages of the connect sequence
const (
	StagePermission = "permission"
	StageScan       = "scan"
	StageConnect    = "connect"
)

// ConnectionError reports which stage of the connect sequence failed
type ConnectionError struct {
	Stage string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

package overlay

import "errors"

// InterfaceProvisioningError wraps a failure creating or configuring the
// virtual interface during Construct.
type InterfaceProvisioningError struct {
	Op  string
	Err error
}

func (e *InterfaceProvisioningError) Error() string {
	return "overlay: provisioning virtual interface (" + e.Op + "): " + e.Err.Error()
}

func (e *InterfaceProvisioningError) Unwrap() error { return e.Err }

// BindFailureError wraps a failure binding the external UDP endpoint
// during Start.
type BindFailureError struct {
	Err error
}

func (e *BindFailureError) Error() string {
	return "overlay: binding external endpoint: " + e.Err.Error()
}

func (e *BindFailureError) Unwrap() error { return e.Err }

// ErrNotStarted is returned by AddKnownClient when called before Start.
var ErrNotStarted = errors.New("overlay: server not started")

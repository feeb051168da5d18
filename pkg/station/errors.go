package station

import (
	"errors"
)

var (
	ErrInvalidReading        = errors.New("invalid reading")
	ErrMissingDeviceIdentity = errors.New("missing device identity")
	ErrMissingOwnerIdentity  = errors.New("missing owner identity")
	ErrUnresolvedOwner       = errors.New("unresolved owner")
	ErrLookupFailure         = errors.New("owner lookup failed")
	ErrPersistFailure        = errors.New("persist failure")

	ErrUnknownDevice = errors.New("unknown device")
	ErrUnknownOwner  = errors.New("unknown owner")
	ErrDeviceTaken   = errors.New("device already registered to a plant")
)

// Stage is a step of one ingestion run.
type Stage string

const (
	StageReceived      Stage = "RECEIVED"
	StageValidated     Stage = "VALIDATED"
	StageResolved      Stage = "RESOLVED"
	StagePersisted     Stage = "PERSISTED"
	StageBroadcast     Stage = "BROADCAST"
	StageRejected      Stage = "REJECTED"
	StagePersistFailed Stage = "PERSIST_FAILED"
)

// IngestError carries the terminal stage of a failed run. Kind sentinels
// are reachable through errors.Is.
type IngestError struct {
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is a caller-actionable rejection rather
// than a server fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidReading) ||
		errors.Is(err, ErrMissingDeviceIdentity) ||
		errors.Is(err, ErrMissingOwnerIdentity) ||
		errors.Is(err, ErrUnresolvedOwner)
}

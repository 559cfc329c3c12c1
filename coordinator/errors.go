package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrShutdown indicates the coordinator has been shut down and
	// rejects new operations.
	ErrShutdown = errors.New("coordinator: shut down")

	// ErrNoHealthyPeers indicates an operation required healthy peers
	// and none were available.
	ErrNoHealthyPeers = errors.New("coordinator: no healthy peers")

	// ErrNoCheckpoint indicates no saved checkpoint exists for the
	// operation being resumed.
	ErrNoCheckpoint = errors.New("coordinator: no checkpoint found")
)

// NoQuorumError reports that a consistency query did not reach the
// required level of agreement.
type NoQuorumError struct {
	// Best is the size of the largest agreeing response group.
	Best int

	// Required is the number of agreeing responses needed for quorum.
	Required int

	// Healthy is the number of healthy peers that were queried.
	Healthy int
}

func (e *NoQuorumError) Error() string {
	return fmt.Sprintf("coordinator: no quorum: best agreement %d/%d, need %d", e.Best, e.Healthy, e.Required)
}

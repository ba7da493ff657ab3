package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	// ErrUnavailable marks failures where the store could not be reached or is still starting.
	ErrUnavailable = errors.New("graph store unavailable")
	// ErrQuery marks failures reported by the store while executing a statement.
	ErrQuery = errors.New("graph query failed")
)

// Classify tags err with ErrUnavailable or ErrQuery. Errors that are already tagged are returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrQuery) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || neo4j.IsConnectivityError(err) || neo4j.IsRetryable(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrQuery, err)
}

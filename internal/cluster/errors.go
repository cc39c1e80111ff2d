package cluster

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when there are no entities to cluster.
var ErrEmptyInput = errors.New("no data to cluster")

// ErrInvalidClusterCount matches any *InvalidClusterCountError.
var ErrInvalidClusterCount = errors.New("invalid cluster count")

// ErrInvalidRange matches any *InvalidRangeError.
var ErrInvalidRange = errors.New("invalid cluster count range")

// InvalidClusterCountError reports a k outside [1, Entities].
type InvalidClusterCountError struct {
	K        int
	Entities int
}

func (e *InvalidClusterCountError) Error() string {
	return fmt.Sprintf("invalid cluster count %d: must be between 1 and %d", e.K, e.Entities)
}

// Is lets errors.Is match the ErrInvalidClusterCount sentinel.
func (e *InvalidClusterCountError) Is(target error) bool {
	return target == ErrInvalidClusterCount
}

// InvalidRangeError reports an unusable [KMin, KMax] sweep range. Limit is
// the largest k the data supports.
type InvalidRangeError struct {
	KMin  int
	KMax  int
	Limit int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid k range [%d, %d] (data supports at most k=%d)", e.KMin, e.KMax, e.Limit)
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

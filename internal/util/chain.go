package util

import (
	"context"
	"errors"
	"fmt"
)

// ErrAllStrategiesFailed is returned by Chain.Do when no strategy succeeded.
var ErrAllStrategiesFailed = errors.New("all strategies failed")

// Strategy is one way of obtaining a result, e.g. one endpoint variant.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Chain tries its strategies in order and stops at the first success.
type Chain[T any] []Strategy[T]

// Do returns the first successful result and the index of the strategy that
// produced it. Context cancellation stops the chain early.
func (c Chain[T]) Do(ctx context.Context) (T, int, error) {
	var zero T
	var errs []error
	for i, s := range c {
		if err := ctx.Err(); err != nil {
			return zero, -1, err
		}
		v, err := s.Run(ctx)
		if err == nil {
			return v, i, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		return zero, -1, ErrAllStrategiesFailed
	}
	return zero, -1, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(errs...))
}

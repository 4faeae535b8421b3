// Package assert holds checks for programmer errors, they panic instead of
// returning errors.
package assert

import "fmt"

func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func NonNegative[T ~int | ~int64 | ~float64](name string, value T) {
	if value < 0 {
		panic(fmt.Sprintf("expected %s to be non-negative, got %v", name, value))
	}
}

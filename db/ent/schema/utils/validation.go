package utils

import (
	"fmt"
	"slices"
)

// EnumValidator accepts only the listed values.
func EnumValidator(allowed ...string) func(string) error {
	return func(s string) error {
		if slices.Contains(allowed, s) {
			return nil
		}
		return fmt.Errorf("value %q is not one of %v", s, allowed)
	}
}

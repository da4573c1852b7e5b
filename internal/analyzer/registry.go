package analyzer

import "fmt"

// NewChecker creates a checker for the named variant. "none" disables
// checking and returns a nil Checker.
func NewChecker(variant string) (Checker, error) {
	switch variant {
	case "contrast", "":
		return NewContrastChecker(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown legibility check: %s", variant)
	}
}

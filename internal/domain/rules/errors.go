package rules

import "errors"

// ErrCompile marks a rule that could not be compiled.
var ErrCompile = errors.New("safety rule compile failed")

// Package ui holds terminal presentation helpers for the command line client.
package ui

import "fmt"

const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m"
)

var MethodColors = map[string]string{
	"GET":    Green,
	"POST":   Blue,
	"PUT":    Cyan,
	"DELETE": Yellow,
	"PATCH":  Magenta,
}

// Colourise wraps s in colour, or returns it untouched when colour is off.
func Colourise(enabled bool, colour, s string) string {
	if !enabled || colour == "" {
		return s
	}
	return colour + s + ResetColor
}

// Method renders an HTTP method padded for aligned request lines.
func Method(enabled bool, method string) string {
	padded := fmt.Sprintf("%-7s", method)
	colour, ok := MethodColors[method]
	if !ok {
		colour = Gray
	}
	return Colourise(enabled, colour, padded)
}

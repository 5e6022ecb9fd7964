// Package utils provides small shared helpers for the noesis module:
// vector math, top-K selection, bounded concurrency, and panic recovery.
package utils

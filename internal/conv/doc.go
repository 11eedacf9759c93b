// Package conv provides checked integer conversions for sizes and counts
// read from disk, where a corrupt header must become an error rather than a
// wrapped value.
package conv

// Package conv provides checked integer conversions for on-disk and arena
// sizes.
package conv

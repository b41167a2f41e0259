// Package matrixfile moves distance matrices between memory and the plain-text
// layout ripser reads: one row per line, values separated by a single space.
//
// Write owns the lifecycle of the temporary file handed to ripser; callers
// pair every successful Write with exactly one Release, normally via defer, so
// the file disappears whether or not the computation succeeds.
package matrixfile

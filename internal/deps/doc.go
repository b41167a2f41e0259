// Package deps resolves the external executables ripsergo shells out to and
// reports which ones are missing.
package deps

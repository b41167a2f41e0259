// Package preflight provides readiness checks for the ripser executable and
// the filesystem paths ripsergo writes to.
//
// The CLI "doctor" command runs RunAll and renders the results; "compute"
// uses CheckSystemDeps to fail fast when ripser cannot be resolved.
package preflight

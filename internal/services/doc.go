// Package services holds context plumbing shared by the pipeline and the CLI.
//
// A run id and a matrix label travel through context.Context so that every log
// line emitted while one matrix is processed can be correlated, even when the
// CLI computes several matrices in parallel.
package services

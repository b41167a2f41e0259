// Package ripser runs the external ripser executable and turns its text report
// into persistence diagrams.
//
// The pipeline has three parts:
//   - matrix serialization (package matrixfile) producing the file ripser reads
//   - Runner.Run, which spawns ripser, drains stdout and stderr concurrently
//     and waits for exit
//   - ParseReport, a line-oriented state machine over ripser's report
//
// Runner.Compute chains all three and always removes the temporary matrix
// file; Runner.ExecuteAndParse starts from a matrix file that already exists.
//
// Every failure is a *Error tagged with a Kind. Use errors.Is with
// ErrSerialization, ErrExternalTool, ErrParse or ErrTimeout to branch on the
// kind, and errors.As to reach the command line, captured stderr or offending
// output line. A rejected Spec or missing matrix path is reported before
// anything is spawned as a KindExternalTool error with Op "validate" that also
// matches ErrInvalidSpec.
package ripser

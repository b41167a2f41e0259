package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"ripsergo/internal/ripser"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type errorJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Line    int    `json:"line,omitempty"`
	Content string `json:"content,omitempty"`
}

type resultJSON struct {
	File      string         `json:"file"`
	RunID     string         `json:"run_id,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Report    *ripser.Report `json:"report,omitempty"`
	Error     *errorJSON     `json:"error,omitempty"`
}

func newErrorJSON(err error) *errorJSON {
	if err == nil {
		return nil
	}
	out := &errorJSON{Kind: "error", Message: err.Error()}
	var rerr *ripser.Error
	if errors.As(err, &rerr) {
		out.Kind = rerr.Kind.String()
		out.Command = rerr.Command
		out.Stderr = rerr.Stderr
		out.Line = rerr.Line
		out.Content = rerr.Content
	}
	return out
}

func resultsJSON(results []computeResult) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, result := range results {
		entry := resultJSON{
			File:      result.Path,
			RunID:     result.RunID,
			ElapsedMS: result.Elapsed.Milliseconds(),
			Error:     newErrorJSON(result.Err),
		}
		if result.Err == nil {
			report := result.Report
			entry.Report = &report
		}
		out = append(out, entry)
	}
	return out
}

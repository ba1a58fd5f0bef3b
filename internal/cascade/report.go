package cascade

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"webuictl/pkg/types"
)

// excerptLines caps the per-attempt diagnostic excerpt in console output.
const excerptLines = 3

// Render writes the human-readable diagnostic report: one line per attempt
// with a truncated log excerpt, terminated by the session outcome.
func Render(w io.Writer, r types.Report) {
	fmt.Fprintf(w, "session %s\n", r.SessionID)
	fmt.Fprintf(w, "environment: accelerator=%s", r.Profile.Accelerator)
	if r.Profile.AcceleratorName != "" {
		fmt.Fprintf(w, " (%s)", r.Profile.AcceleratorName)
	}
	if r.Profile.VRAMBytes > 0 {
		fmt.Fprintf(w, " vram=%dMiB", r.Profile.VRAMBytes/(1024*1024))
	}
	fmt.Fprintf(w, " runtime=%s os=%s\n", r.Profile.RuntimeVersion, r.Profile.OS)

	for i, a := range r.Attempts {
		fmt.Fprintf(w, "%2d. %-48s %-9s %6.1fs", i+1, a.Candidate.Label, a.Outcome, a.Elapsed().Seconds())
		if a.ExitCode >= 0 {
			fmt.Fprintf(w, " exit=%d", a.ExitCode)
		}
		if a.Verdict != "" {
			fmt.Fprintf(w, " verdict=%s", a.Verdict)
		}
		fmt.Fprintln(w)
		if a.Outcome.Failure() {
			tail := a.LogTail
			if len(tail) > excerptLines {
				tail = tail[len(tail)-excerptLines:]
			}
			for _, line := range tail {
				fmt.Fprintf(w, "      | %s\n", line)
			}
			if a.Error != "" {
				fmt.Fprintf(w, "      > %s\n", a.Error)
			}
		}
	}

	switch r.Outcome {
	case types.SessionSucceeded:
		fmt.Fprintf(w, "outcome: succeeded with %q after %d attempt(s)\n", r.Winner.Label, len(r.Attempts))
	default:
		fmt.Fprintf(w, "outcome: exhausted after %d attempt(s)\n", len(r.Attempts))
	}
}

// WriteFile persists the report as JSON, suitable as a session log.
func WriteFile(path string, r types.Report) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

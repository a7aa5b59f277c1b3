package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/lucasnoah/auditgate/internal/audit"
)

// ExitError is returned when the gate should end the process with a non-zero
// code. Returning it instead of calling os.Exit lets deferred cleanup run.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// renderResult prints the gate outcome. In text mode the messages are:
//
//	No issues :: SUCCESS
//	FAILURE :: <VERDICT>[ :: <summary line>]
//	<summary line>
//	exec error: <error>
//
// with the raw audit report echoed first when report is set.
func renderResult(w io.Writer, res *audit.Result, report bool, output string) error {
	if output == "json" {
		out, err := res.JSON()
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(w, out)
		return nil
	}

	switch res.Status {
	case audit.StatusExecError:
		fmt.Fprintf(w, "exec error: %s\n", res.ExecError)
		return nil
	case audit.StatusSuccess:
		fmt.Fprintln(w, "No issues :: SUCCESS")
		return nil
	}

	// The command ran but printed nothing.
	if res.Output == "" {
		return nil
	}

	if report {
		fmt.Fprint(w, res.Output)
		if !strings.HasSuffix(res.Output, "\n") {
			fmt.Fprintln(w)
		}
	}

	if res.Verdict.Failed() {
		msg := fmt.Sprintf("FAILURE :: %s", res.Verdict)
		if !report {
			msg = fmt.Sprintf("%s :: %s", msg, res.Summary)
		}
		fmt.Fprintln(w, msg)
		return nil
	}

	if !report {
		fmt.Fprintln(w, res.Summary)
	}
	return nil
}

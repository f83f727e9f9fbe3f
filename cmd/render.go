package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/json-iterator/go"

	"github.com/LumeraProtocol/arprov/pkg/capability"
)

// checkReport is the --output json document.
type checkReport struct {
	Session      capability.SessionState `json:"session"`
	Decision     capability.Decision     `json:"decision"`
	Advice       string                  `json:"advice"`
	InstallError string                  `json:"install_error,omitempty"`
}

func newCheckReport(res *capability.Result) checkReport {
	r := checkReport{
		Session:  res.Session,
		Decision: res.Decision,
		Advice:   advice(res.Decision),
	}
	if res.InstallErr != nil {
		r.InstallError = res.InstallErr.Error()
	}
	return r
}

func advice(d capability.Decision) string {
	switch d {
	case capability.DecisionProceed:
		return "AR features can be enabled"
	case capability.DecisionPromptInstall:
		return "ask the user to install or update the AR runtime, then check again"
	case capability.DecisionDisable:
		return "hide AR features on this device"
	case capability.DecisionRetry:
		return "capability undetermined; keep AR features hidden and check again later"
	}
	return "no decision"
}

func render(w io.Writer, format string, res *capability.Result) error {
	report := newCheckReport(res)
	if format == outputJSON {
		data, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Session:\t%s\n", report.Session.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", report.Session.Status)
	fmt.Fprintf(tw, "Decision:\t%s\n", report.Decision)
	fmt.Fprintf(tw, "Attempts:\t%d (total queries %d)\n", report.Session.Attempts, report.Session.TotalQueries)
	if v := report.Session.RuntimeVersion; v != "" {
		fmt.Fprintf(tw, "Runtime version:\t%s\n", v)
	}
	if report.Session.InstallRequested {
		fmt.Fprintf(tw, "Install requested:\tyes\n")
	}
	if e := report.Session.LastError; e != "" {
		fmt.Fprintf(tw, "Last error:\t%s\n", e)
	}
	if report.InstallError != "" {
		fmt.Fprintf(tw, "Install error:\t%s\n", report.InstallError)
	}
	fmt.Fprintf(tw, "Advice:\t%s\n", report.Advice)
	return tw.Flush()
}

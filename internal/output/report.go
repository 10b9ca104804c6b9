package output

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/4nozen/NymNodeInstall/internal/history"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

const timeLayout = "2006-01-02 15:04:05"

// ResultReport renders a workflow Result. It marshals exactly like the Result.
type ResultReport struct {
	*update.Result
}

// MarshalJSON keeps the JSON shape of the embedded Result.
func (r ResultReport) MarshalJSON() ([]byte, error) { return marshalJSON(r.Result) }

// MarshalYAML keeps the YAML shape of the embedded Result.
func (r ResultReport) MarshalYAML() (any, error) { return r.Result, nil }

func (r ResultReport) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "State:\t%s\n", r.State)
	_, _ = fmt.Fprintf(w, "Binary:\t%s\n", r.BinaryPath)
	_, _ = fmt.Fprintf(w, "Installed:\t%s\n", dash(string(r.InstalledVersion)))
	if r.LatestVersion != "" {
		latest := string(r.LatestVersion)
		if r.ReleaseTag != "" {
			latest += " (" + r.ReleaseTag + ")"
		}
		_, _ = fmt.Fprintf(w, "Latest:\t%s\n", latest)
	}
	if r.ReleaseURL != "" {
		_, _ = fmt.Fprintf(w, "Release:\t%s\n", r.ReleaseURL)
	}
	if r.BackupPath != "" {
		_, _ = fmt.Fprintf(w, "Backup:\t%s\n", r.BackupPath)
	}
	if r.Changed {
		_, _ = fmt.Fprintf(w, "Restart:\t%s\n", restartSummary(r.Result))
	}
	if r.ServiceActive != nil {
		_, _ = fmt.Fprintf(w, "Service active:\t%s\n", yesNo(*r.ServiceActive))
	}
	if r.ProcessRunning != nil {
		_, _ = fmt.Fprintf(w, "Process running:\t%s\n", yesNo(*r.ProcessRunning))
	}
	_ = w.Flush()
	return b.String()
}

func restartSummary(r *update.Result) string {
	switch {
	case r.Restarted:
		return "restarted"
	case r.RestartError != "":
		return "failed: " + r.RestartError
	default:
		return "skipped"
	}
}

// RollbackReport renders a RollbackResult.
type RollbackReport struct {
	*update.RollbackResult
}

// MarshalJSON keeps the JSON shape of the embedded RollbackResult.
func (r RollbackReport) MarshalJSON() ([]byte, error) { return marshalJSON(r.RollbackResult) }

// MarshalYAML keeps the YAML shape of the embedded RollbackResult.
func (r RollbackReport) MarshalYAML() (any, error) { return r.RollbackResult, nil }

func (r RollbackReport) String() string {
	if r.Declined {
		return fmt.Sprintf("Rollback declined; %s left unchanged.", r.BinaryPath)
	}
	return fmt.Sprintf("Restored %s from %s (version %s).", r.BinaryPath, r.BackupPath, dash(string(r.Version)))
}

// ReleaseTable renders a list of releases.
type ReleaseTable []update.ReleaseInfo

func (t ReleaseTable) String() string {
	if len(t) == 0 {
		return "No stable releases found."
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TAG\tPUBLISHED\tASSET")
	for _, r := range t {
		published := "-"
		if !r.PublishedAt.IsZero() {
			published = r.PublishedAt.UTC().Format(timeLayout)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Tag, published, r.AssetName)
	}
	_ = w.Flush()
	return b.String()
}

// HistoryTable renders journal entries.
type HistoryTable []history.Record

func (t HistoryTable) String() string {
	if len(t) == 0 {
		return "No updates recorded."
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tAPPLIED\tFROM\tTO\tRESTARTED")
	for _, r := range t {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.AppliedAt.Local().Format(timeLayout),
			dash(r.FromVersion),
			dash(r.ToVersion),
			yesNo(r.Restarted),
		)
	}
	_ = w.Flush()
	return b.String()
}

// PruneReport renders the outcome of a history prune.
type PruneReport struct {
	*history.PruneResult
}

// MarshalJSON keeps the JSON shape of the embedded PruneResult.
func (r PruneReport) MarshalJSON() ([]byte, error) { return marshalJSON(r.PruneResult) }

// MarshalYAML keeps the YAML shape of the embedded PruneResult.
func (r PruneReport) MarshalYAML() (any, error) { return r.PruneResult, nil }

func (r PruneReport) String() string {
	return fmt.Sprintf("Deleted %d history entries, kept %d.", len(r.Deleted), r.Kept)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

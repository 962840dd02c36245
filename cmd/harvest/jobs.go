package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/harvest"
	"github.com/Sternrassler/harvest-client/pkg/refresh"
)

func (a *app) runJobs(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := a.connect(""); err != nil {
		return a.fail(err, "jobs")
	}
	defer a.close()

	store, closeStore, err := a.openStore(ctx, false)
	if err != nil {
		return a.fail(err, "jobs")
	}
	defer closeStore()

	var latest []harvest.JobListItem
	err = a.newRefresher(store).LoadJobs(ctx, func(u refresh.Update[[]harvest.JobListItem]) {
		if u.Source == refresh.SourceCache {
			a.logger.Debug().
				Int("jobs", len(u.Value)).
				Time("updated_at", u.UpdatedAt).
				Msg("Loaded jobs from cache")
		}
		latest = u.Value
	})
	if err != nil {
		return a.fail(err, "jobs")
	}

	if *asJSON {
		if err := a.writeJSON(latest, true); err != nil {
			return a.fail(err, "jobs")
		}
		return 0
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPOSTS")
	for _, job := range latest {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", job.JobID, job.Title, postLabel(job))
	}
	tw.Flush()
	return 0
}

func postLabel(job harvest.JobListItem) string {
	if job.HasNoPosts {
		return "no posts"
	}
	var parts []string
	if job.HasInternal {
		parts = append(parts, "internal")
	}
	if job.HasExternal {
		parts = append(parts, "external")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatDays(value *string, now time.Time) string {
	if value == nil {
		return "unknown"
	}
	days, ok := harvest.DaysSince(*value, now)
	switch {
	case !ok:
		return "unknown"
	case days == 0:
		return "today"
	case days == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

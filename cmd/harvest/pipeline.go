package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/harvest"
	"github.com/Sternrassler/harvest-client/pkg/refresh"
)

func (a *app) runPipeline(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	jobID := fs.Int64("job", 0, "Harvest job ID (required)")
	asJSON := fs.Bool("json", false, "print the sections as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *jobID <= 0 {
		fmt.Fprintln(a.stderr, "--job is required")
		return 2
	}

	if err := a.connect(""); err != nil {
		return a.fail(err, "pipeline")
	}
	defer a.close()

	store, closeStore, err := a.openStore(ctx, false)
	if err != nil {
		return a.fail(err, "pipeline")
	}
	defer closeStore()

	var latest *harvest.JobPipelineData
	err = a.newRefresher(store).LoadPipeline(ctx, *jobID, func(u refresh.Update[*harvest.JobPipelineData]) {
		latest = u.Value
	})
	if err != nil {
		return a.fail(err, "pipeline")
	}

	sections := harvest.BuildPipelineSections(latest.Applications, latest.Stages)

	if *asJSON {
		if err := a.writeJSON(sections, true); err != nil {
			return a.fail(err, "pipeline")
		}
		return 0
	}

	now := time.Now()
	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(a.stdout)
		}
		fmt.Fprintf(a.stdout, "%s (%d) [%s]\n", section.Title, len(section.Applications), harvest.StageTint(section.Title))
		for _, application := range section.Applications {
			name := "Unknown candidate"
			if c, ok := latest.Candidates[application.CandidateID]; ok {
				if n, ok := harvest.CandidateName(&c); ok {
					name = n
				}
			}
			fmt.Fprintf(a.stdout, "  %s  applied %s, last activity %s\n    %s\n",
				name,
				formatDays(application.AppliedAt, now),
				formatDays(application.LastActivityAt, now),
				harvest.CandidateApplicationURL(a.cfg.Harvest.RecruitingBaseURL, application.CandidateID, application.ID))
		}
	}
	return 0
}

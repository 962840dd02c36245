package harvest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NoStageSectionID and NoStageSectionTitle identify the trailing section that
// collects applications without a current stage.
const (
	NoStageSectionID    = "none"
	NoStageSectionTitle = "No Stage"
)

// DefaultRecruitingBaseURL is the Greenhouse Recruiting web app root used for
// candidate links.
const DefaultRecruitingBaseURL = "https://s101.recruiting.eu.greenhouse.io"

type stageEntry struct {
	id       int64
	name     string
	priority int
}

// BuildPipelineSections groups applications by current stage. Known stages are
// ordered by priority then name; stages referenced only by applications follow
// them, ordered by name. Empty sections are omitted and a non-empty
// "No Stage" section is always last.
func BuildPipelineSections(applications []Application, stages []JobStage) []PipelineSection {
	grouped := make(map[int64][]Application)
	var noStage []Application
	for _, app := range applications {
		if app.CurrentStage == nil {
			noStage = append(noStage, app)
			continue
		}
		grouped[app.CurrentStage.ID] = append(grouped[app.CurrentStage.ID], app)
	}

	index := make(map[int64]int)
	var entries []stageEntry
	add := func(e stageEntry) {
		if i, ok := index[e.id]; ok {
			entries[i] = e
			return
		}
		index[e.id] = len(entries)
		entries = append(entries, e)
	}

	for _, stage := range stages {
		add(stageEntry{id: stage.ID, name: stage.Name, priority: stage.Priority})
	}
	for _, app := range applications {
		if app.CurrentStage == nil {
			continue
		}
		if _, ok := index[app.CurrentStage.ID]; ok {
			continue
		}
		add(stageEntry{id: app.CurrentStage.ID, name: app.CurrentStage.Name, priority: math.MaxInt})
	}

	col := newCollator()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return col.CompareString(entries[i].name, entries[j].name) < 0
	})

	sections := make([]PipelineSection, 0, len(entries)+1)
	for _, e := range entries {
		apps := grouped[e.id]
		if len(apps) == 0 {
			continue
		}
		sections = append(sections, PipelineSection{
			ID:           strconv.FormatInt(e.id, 10),
			Title:        e.name,
			Applications: apps,
		})
	}

	if len(noStage) > 0 {
		sections = append(sections, PipelineSection{
			ID:           NoStageSectionID,
			Title:        NoStageSectionTitle,
			Applications: noStage,
		})
	}

	return sections
}

// CandidateName returns "first last" from whichever parts are present,
// falling back to the full-name field. ok is false when nothing is set.
func CandidateName(c *Candidate) (string, bool) {
	if c == nil {
		return "", false
	}
	var parts []string
	if first := trimmed(c.FirstName); first != "" {
		parts = append(parts, first)
	}
	if last := trimmed(c.LastName); last != "" {
		parts = append(parts, last)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " "), true
	}
	if name := trimmed(c.Name); name != "" {
		return name, true
	}
	return "", false
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// DaysSince returns the whole days elapsed between value and now, clamped at
// zero for future dates. value is RFC 3339 or a date-only string, which is
// read as midnight UTC. ok is false for empty or unparseable input.
func DaysSince(value string, now time.Time) (int, bool) {
	if value == "" {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if t, err = time.Parse(time.DateOnly, value); err != nil {
			return 0, false
		}
	}
	diff := now.Sub(t)
	if diff < 0 {
		return 0, true
	}
	return int(diff / (24 * time.Hour)), true
}

// CandidateApplicationURL links to an application in the Recruiting web app.
// An empty base falls back to DefaultRecruitingBaseURL.
func CandidateApplicationURL(baseURL string, candidateID, applicationID int64) string {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = DefaultRecruitingBaseURL
	}
	base = strings.TrimSuffix(base, "/")
	return fmt.Sprintf("%s/people/%d/applications/%d/redesign", base, candidateID, applicationID)
}

// Tint is a display colour name for a stage.
type Tint string

const (
	TintRed       Tint = "red"
	TintGreen     Tint = "green"
	TintPurple    Tint = "purple"
	TintOrange    Tint = "orange"
	TintBlue      Tint = "blue"
	TintSecondary Tint = "secondary"
)

var stageTintRules = []struct {
	keywords []string
	tint     Tint
}{
	{keywords: []string{"reject", "declin", "withdraw", "archive"}, tint: TintRed},
	{keywords: []string{"hire", "offer"}, tint: TintGreen},
	{keywords: []string{"interview", "onsite", "on-site", "take home", "assessment"}, tint: TintPurple},
	{keywords: []string{"phone", "screen"}, tint: TintOrange},
	{keywords: []string{"application", "review"}, tint: TintBlue},
}

// StageTint picks a colour from keywords in the stage name. First matching
// rule wins.
func StageTint(stageName string) Tint {
	normalized := strings.ToLower(strings.TrimSpace(stageName))
	if normalized == "" {
		return TintSecondary
	}
	for _, rule := range stageTintRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.tint
			}
		}
	}
	return TintSecondary
}

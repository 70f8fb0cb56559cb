package app

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/sitelens/internal/model"
)

// computeDrift measures how much the page body changed between two analyses
// of the same URL. Character-level diffing keeps small edits cheap to report;
// the ratio is changed characters over the larger document size.
func computeDrift(previous, current string) *model.ContentDrift {
	if previous == "" || current == "" {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(previous, current, false)

	changed := 0
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			changed += len(d.Text)
		}
	}

	total := len(previous)
	if len(current) > total {
		total = len(current)
	}
	if total == 0 {
		return nil
	}

	ratio := float64(changed) / float64(total)
	if ratio > 1 {
		ratio = 1
	}

	return &model.ContentDrift{
		ChangedChars: changed,
		TotalChars:   total,
		Ratio:        ratio,
	}
}

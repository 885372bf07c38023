// Package recommend turns a completed questionnaire into a ranking of
// catalog models. Scoring is a pure function over the answers and the
// catalog; nothing here holds state.
package recommend

import (
	"fmt"
	"sort"

	"car-advisor/internal/catalog"
)

// StyleAny is the style-preference answer meaning "no preference";
// it disables the style filter.
const StyleAny = 3

// Input is a fully answered questionnaire. Features may be empty; an empty
// set simply contributes nothing to the score.
type Input struct {
	DailyDistance   int
	Usage           int
	Features        []int
	StylePreference int
}

// Options tune the scoring. Emphasis multiplies the daily-distance and usage
// weights; the delivery surfaces pass different values, so it is never
// defaulted here.
type Options struct {
	Emphasis int
}

// Candidate is one scored model.
type Candidate struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// Ranking is the full, score-descending candidate list after style
// filtering. A zero-length ranking is the "no matching model" outcome, a
// normal result rather than an error.
type Ranking struct {
	Candidates []Candidate `json:"candidates"`
}

// NoMatch reports whether the style filter eliminated every model.
func (r Ranking) NoMatch() bool {
	return len(r.Candidates) == 0
}

// Best returns the top-ranked candidate.
func (r Ranking) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

func validate(in Input) error {
	if in.DailyDistance < 0 || in.DailyDistance > 2 {
		return fmt.Errorf("daily distance answer out of range: %d", in.DailyDistance)
	}
	if in.Usage < 0 || in.Usage > 2 {
		return fmt.Errorf("usage answer out of range: %d", in.Usage)
	}
	if in.StylePreference < 0 || in.StylePreference > StyleAny {
		return fmt.Errorf("style preference out of range: %d", in.StylePreference)
	}
	seen := [6]bool{}
	for _, f := range in.Features {
		if f < 0 || f > 5 {
			return fmt.Errorf("feature index out of range: %d", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate feature selection: %d", f)
		}
		seen[f] = true
	}
	return nil
}

// Recommend scores every catalog model against the answers, filters by the
// requested style and returns the ranking. Equal scores keep catalog order,
// so ties are deterministic.
func Recommend(in Input, cat *catalog.Catalog, opts Options) (Ranking, error) {
	if err := validate(in); err != nil {
		return Ranking{}, err
	}
	if opts.Emphasis <= 0 {
		return Ranking{}, fmt.Errorf("emphasis multiplier must be positive, got %d", opts.Emphasis)
	}

	var wantStyle catalog.Style
	if in.StylePreference != StyleAny {
		wantStyle, _ = catalog.StyleFromIndex(in.StylePreference)
	}

	candidates := make([]Candidate, 0, cat.Len())
	for _, e := range cat.Entries() {
		if in.StylePreference != StyleAny && e.Profile.Style != wantStyle {
			continue
		}

		score := e.Profile.DailyDistance[in.DailyDistance]*opts.Emphasis +
			e.Profile.Usage[in.Usage]*opts.Emphasis
		for _, f := range in.Features {
			score += e.Profile.Features[f]
		}

		candidates = append(candidates, Candidate{ID: e.ID, Score: score})
	}

	// Stable keeps catalog insertion order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return Ranking{Candidates: candidates}, nil
}

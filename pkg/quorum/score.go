package quorum

// Scorer is the pluggable scoring/heuristics subsystem. Real
// implementations combine things like network reachability and
// filesystem health into a single number; this package only consumes
// the result.
type Scorer interface {
	// Score returns the current score and the maximum score achievable,
	// i.e. what current_score, max_score would be in the heuristics
	// subsystem this interface stands in for.
	Score() (current, max int)
}

// StaticScorer is the trivial default used when no heuristics are
// configured: always perfectly healthy.
type StaticScorer struct{}

func (StaticScorer) Score() (current, max int) { return 1, 1 }

// scoreRequirement derives the minimum passing score from cfg.ScoreMin,
// defaulting to a strict majority of max when unset.
func scoreRequirement(cfg Config, max int) int {
	if cfg.ScoreMin > 0 {
		return cfg.ScoreMin
	}
	return max/2 + 1
}

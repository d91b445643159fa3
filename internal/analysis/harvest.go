package analysis

// HarvestDropThreshold is the RVI week-over-week drop that indicates harvest.
const HarvestDropThreshold = 0.30

// HarvestConfidence is the fixed confidence for harvest signals; the rule is
// coarse, so detection quality does not vary with score.
const HarvestConfidence = 0.85

// HarvestDetection is a detected harvest event.
type HarvestDetection struct {
	Drop  float64 `json:"drop"`
	Score float64 `json:"score"`
}

// DetectHarvest compares the target week's RVI mean against the previous ISO
// week. Returns nil unless the drop exceeds the threshold.
func DetectHarvest(previousRVI, currentRVI float64) *HarvestDetection {
	drop := previousRVI - currentRVI
	if drop <= HarvestDropThreshold {
		return nil
	}
	return &HarvestDetection{Drop: drop, Score: clamp(drop, 0, 1)}
}

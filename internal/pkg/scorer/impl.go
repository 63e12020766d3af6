package scorer

const (
	DefaultRating = 1200
	MinRating     = 100

	KFactor        = 32
	PremiumKFactor = 64

	// ScoreScale is the fixed-point denominator of expected scores (per mille).
	ScoreScale = 1000
)

type bucket struct {
	minDifference int64
	expected      int64
}

// Ordered from the largest rating advantage down. A difference matches the first
// bucket whose minDifference it reaches.
var expectedScoreBuckets = []bucket{
	{400, 900},
	{200, 750},
	{100, 650},
	{50, 575},
	{0, 500},
	{-49, 425},
	{-99, 350},
	{-199, 250},
	{-399, 100},
}

const worstExpectedScore = 50

func GetKFactor(premium bool) int64 {
	if premium {
		return PremiumKFactor
	}

	return KFactor
}

// CalculateExpectedScore returns the per-mille chance that an asset rated rating beats
// one rated opponent.
func CalculateExpectedScore(rating, opponent int64) int64 {
	difference := rating - opponent

	for _, b := range expectedScoreBuckets {
		if difference >= b.minDifference {
			return b.expected
		}
	}

	return worstExpectedScore
}

// UpdateRatings is not zero-sum: both sides are looked up independently in the bucket
// table and truncated separately.
func UpdateRatings(winnerRating, loserRating int64, premium bool) (int64, int64) {
	k := GetKFactor(premium)

	expectedWinner := CalculateExpectedScore(winnerRating, loserRating)
	expectedLoser := CalculateExpectedScore(loserRating, winnerRating)

	newWinner := winnerRating + k*(ScoreScale-expectedWinner)/ScoreScale
	newLoser := loserRating - k*(ScoreScale-expectedLoser)/ScoreScale

	return clamp(newWinner), clamp(newLoser)
}

func clamp(rating int64) int64 {
	if rating < MinRating {
		return MinRating
	}

	return rating
}

package lottery

const (
	RollSpace = 100

	BaseXP            = 50
	LargeXP           = 150
	MediumXP          = 100
	MediumBonusVotes  = 2
	BonusVotesOnly    = 3
	SmallXP           = 25
	SmallXPBonusVotes = 5

	baseXPMass   = 50
	largeXPMass  = 10
	mediumXPMass = 10

	// secondaryCutoff splits the secondary branch between its two outcomes.
	secondaryCutoff = 50

	// LowestTierPoints is the share of roll space the lowest token tier always keeps.
	LowestTierPoints = 6

	SafeFundsPercent   = 80
	FullTargetMultiple = 20
	ScalingMultiple    = 10
)

// CategorySecondary marks the branch that the secondary roll resolves into
// CategoryBonusVotes or CategorySmallXPBonus.
const CategorySecondary Category = "secondary"

var massBreakpoints = []struct {
	minBalance int64
	mass       int
}{
	{500_000, 20},
	{250_000, 18},
	{100_000, 15},
	{50_000, 12},
	{25_000, 9},
	{10_000, 6},
}

// Ladder lists the token tiers from the lowest up. Points caps how much of the
// treasury-dependent mass a tier receives once the tiers below it are full.
var Ladder = []Tier{
	{Level: 1, Target: 1_000, Minimum: 200, Floor: 0, Points: LowestTierPoints},
	{Level: 2, Target: 2_500, Minimum: 500, Floor: 25_000, Points: 5},
	{Level: 3, Target: 5_000, Minimum: 1_000, Floor: 75_000, Points: 4},
	{Level: 4, Target: 10_000, Minimum: 2_000, Floor: 150_000, Points: 3},
	{Level: 5, Target: 25_000, Minimum: 5_000, Floor: 400_000, Points: 1},
	{Level: 6, Target: 50_000, Minimum: 10_000, Floor: 750_000, Points: 1},
}

// TokenMass returns G, the roll points reserved for token payouts at this
// prize-break balance.
func TokenMass(prizeBreak int64) int {
	for _, breakpoint := range massBreakpoints {
		if prizeBreak >= breakpoint.minBalance {
			return breakpoint.mass
		}
	}

	return 0
}

// Distribution lays out the roll space for token mass g, in roll order.
func Distribution(g int) []Branch {
	if g < 0 {
		g = 0
	}

	branches := []Branch{
		{Category: CategoryBaseXP, Mass: baseXPMass},
		{Category: CategoryLargeXP, Mass: largeXPMass},
		{Category: CategoryMediumXP, Mass: mediumXPMass},
		{Category: CategorySecondary, Mass: RollSpace - baseXPMass - largeXPMass - mediumXPMass - g},
	}

	remaining := g

	for _, rung := range Ladder {
		points := min(rung.Points, remaining)
		if points <= 0 {
			break
		}

		remaining -= points

		branches = append(branches, Branch{Category: CategoryToken, Tier: rung.Level, Mass: points})
	}

	return branches
}

// SafeFunds is the spendable part of a treasury; the rest is a permanent reserve.
func SafeFunds(balance int64) int64 {
	if balance <= 0 {
		return 0
	}

	return balance/100*SafeFundsPercent + balance%100*SafeFundsPercent/100
}

// ApplySafetyScaling shrinks target towards minimum when available funds are thin.
func ApplySafetyScaling(target, minimum, available int64) int64 {
	if target <= 0 {
		return 0
	}

	if available < 0 {
		available = 0
	}

	if available >= FullTargetMultiple*target {
		return target
	}

	if available < ScalingMultiple*target {
		return minimum + (target-minimum)*available/(ScalingMultiple*target)
	}

	return target
}

// Payout is the token amount a tier grants at this balance. An amount the safe
// funds cannot cover degrades to zero.
func Payout(t Tier, prizeBreak int64) (int64, bool) {
	available := SafeFunds(prizeBreak)

	tokens := ApplySafetyScaling(t.Target, t.Minimum, available)
	if tokens > available {
		tokens = 0
	}

	return tokens, tokens < t.Target
}

func tier(level int) Tier {
	for _, t := range Ladder {
		if t.Level == level {
			return t
		}
	}

	return Ladder[0]
}

// Draw resolves one pair of rolls against the prize-break balance. Pending XP is
// not included; the caller folds it in.
func Draw(roll, secondaryRoll int, prizeBreak int64) Award {
	roll %= RollSpace
	cumulative := 0

	var branch Branch

	for _, b := range Distribution(TokenMass(prizeBreak)) {
		cumulative += b.Mass
		if roll < cumulative {
			branch = b

			break
		}
	}

	award := Award{
		Category: branch.Category,
		Roll:     roll,
	}

	switch branch.Category {
	case CategoryBaseXP:
		award.XP = BaseXP
	case CategoryLargeXP:
		award.XP = LargeXP
	case CategoryMediumXP:
		award.XP = MediumXP
		award.BonusVotes = MediumBonusVotes
	case CategorySecondary:
		if secondaryRoll%RollSpace < secondaryCutoff {
			award.Category = CategoryBonusVotes
			award.BonusVotes = BonusVotesOnly
		} else {
			award.Category = CategorySmallXPBonus
			award.XP = SmallXP
			award.BonusVotes = SmallXPBonusVotes
		}
	case CategoryToken:
		selected := tier(branch.Tier)
		if prizeBreak < selected.Floor {
			selected = Ladder[0]
		}

		award.Tier = selected.Level
		award.Tokens, award.Degraded = Payout(selected, prizeBreak)
	}

	return award
}

package lottery

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Seed holds the call-time values a draw is derived from.
type Seed struct {
	Timestamp     int64
	Voter         string
	TotalVotes    int64
	LastClaimedAt int64
	Draw          int
}

// RollSource yields a primary and a secondary roll in [0, RollSpace) per draw.
type RollSource interface {
	Rolls(seed Seed) (int, int)
}

// HashRollSource hashes the seed. Anyone who controls the seed values can predict
// the result, which is tolerated because payouts are small.
type HashRollSource struct{}

func (HashRollSource) Rolls(seed Seed) (int, int) {
	message := fmt.Sprintf("%d|%s|%d|%d|%d",
		seed.Timestamp,
		seed.Voter,
		seed.TotalVotes,
		seed.LastClaimedAt,
		seed.Draw)

	sum := sha256.Sum256([]byte(message))

	primary := binary.BigEndian.Uint64(sum[0:8]) % RollSpace
	secondary := binary.BigEndian.Uint64(sum[8:16]) % RollSpace

	return int(primary), int(secondary)
}

package catalog

import (
	"slices"

	"github.com/npezzotti/go-roomboard/internal/types"
)

// TierInfo describes a price tier as shown to players.
type TierInfo struct {
	Tier        types.Tier
	Price       int
	DisplayName string
	KillReward  int
	Premium     bool
}

// tiers is ordered by ascending price; buckets are emitted in this order.
var tiers = []TierInfo{
	{Tier: "50", Price: 50, DisplayName: "Entry", KillReward: 10},
	{Tier: "100", Price: 100, DisplayName: "Pro", KillReward: 25},
	{Tier: "200", Price: 200, DisplayName: "Premium", KillReward: 50, Premium: true},
	{Tier: "500", Price: 500, DisplayName: "Elite", KillReward: 100, Premium: true},
}

// Tiers returns the recognized tiers in display order.
func Tiers() []TierInfo {
	return slices.Clone(tiers)
}

func Lookup(tier types.Tier) (TierInfo, bool) {
	for _, t := range tiers {
		if t.Tier == tier {
			return t, true
		}
	}
	return TierInfo{}, false
}

func Known(tier types.Tier) bool {
	_, ok := Lookup(tier)
	return ok
}

// Project filters records and groups them into tier buckets. Buckets follow
// ascending tier order and tiers without rooms are omitted. Within a bucket
// rooms are ordered newest first, with rooms still missing a creation time
// placed ahead of all others. Records with an unrecognized tier are dropped.
// The input slice is not modified.
func Project(records []types.Room, filter types.RoomFilter) []types.TierBucket {
	grouped := make(map[types.Tier][]types.Room, len(tiers))
	for _, r := range records {
		if !filter.Match(r) || !Known(r.Tier) {
			continue
		}
		grouped[r.Tier] = append(grouped[r.Tier], r)
	}

	buckets := make([]types.TierBucket, 0, len(grouped))
	for _, t := range tiers {
		rooms := grouped[t.Tier]
		if len(rooms) == 0 {
			continue
		}

		slices.SortStableFunc(rooms, newestFirst)
		buckets = append(buckets, types.TierBucket{
			Tier:        t.Tier,
			DisplayName: t.DisplayName,
			KillReward:  t.KillReward,
			Premium:     t.Premium,
			Rooms:       rooms,
		})
	}

	return buckets
}

func newestFirst(a, b types.Room) int {
	switch {
	case a.CreatedAt == nil && b.CreatedAt == nil:
		return 0
	case a.CreatedAt == nil:
		return -1
	case b.CreatedAt == nil:
		return 1
	}
	return b.CreatedAt.Compare(*a.CreatedAt)
}

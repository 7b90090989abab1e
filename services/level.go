package services

import "math"

// LevelTier is one row of the fixed level table.
type LevelTier struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
}

// LevelTiers is sorted ascending by MinPoints and starts at 0, so every
// non-negative total resolves to exactly one tier.
var LevelTiers = []LevelTier{
	{Level: 1, Name: "Mubtadi'", MinPoints: 0},
	{Level: 2, Name: "Mutawassith", MinPoints: 501},
	{Level: 3, Name: "Mutaqaddim", MinPoints: 1501},
	{Level: 4, Name: "Hafidz Muda", MinPoints: 3001},
	{Level: 5, Name: "Hafidz", MinPoints: 5001},
}

type LevelInfo struct {
	Level              int    `json:"level"`
	Name               string `json:"name"`
	ProgressPercent    int    `json:"progress_percent"`
	NextLevelThreshold *int64 `json:"next_level_threshold"`
}

// CalculateLevel maps a point total to its tier and the progress toward the
// next one. Negative totals are treated as 0.
func CalculateLevel(points int64) LevelInfo {
	if points < 0 {
		points = 0
	}

	idx := 0
	for i := len(LevelTiers) - 1; i >= 0; i-- {
		if points >= LevelTiers[i].MinPoints {
			idx = i
			break
		}
	}
	current := LevelTiers[idx]

	info := LevelInfo{
		Level: current.Level,
		Name:  current.Name,
	}
	if idx == len(LevelTiers)-1 {
		info.ProgressPercent = 100
		return info
	}

	next := LevelTiers[idx+1]
	threshold := next.MinPoints
	info.NextLevelThreshold = &threshold

	span := float64(next.MinPoints - current.MinPoints)
	pct := math.Round(100 * float64(points-current.MinPoints) / span)
	info.ProgressPercent = int(math.Max(0, math.Min(100, pct)))
	return info
}

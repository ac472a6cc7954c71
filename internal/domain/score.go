package domain

// Score weights per kill category. Deaths carry no weight.
const (
	InfantryWeight = 1
	SoftVehWeight  = 2
	ArmorVehWeight = 3
	AirWeight      = 5
)

func ComputeScore(infKills, softVeh, armorVeh, air int) int {
	return infKills*InfantryWeight + softVeh*SoftVehWeight + armorVeh*ArmorVehWeight + air*AirWeight
}

// ExpectedScore is the score the counters imply.
func (s Stats) ExpectedScore() int {
	return ComputeScore(s.InfKills, s.SoftVeh, s.ArmorVeh, s.Air)
}

func (s Stats) ScoreValid() bool {
	return s.Score == s.ExpectedScore()
}

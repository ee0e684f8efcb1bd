// Package simulator generates plausible football scores from team strength rates.
package simulator

import (
	"math"
	"math/rand/v2"

	"github.com/Dosada05/tournament-organizer/models"
)

// DefaultBaseRate is the expected goals of a side per half between equal teams.
const DefaultBaseRate = 0.65

// maxDraw bounds a single Poisson draw so a broken source cannot loop forever.
const maxDraw = 30

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

type Simulator struct {
	rng      RandomSource
	BaseRate float64
}

func New(rng RandomSource) *Simulator {
	return &Simulator{rng: rng, BaseRate: DefaultBaseRate}
}

// globalSource reads the process-wide generator, safe for concurrent use.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// NewDefault returns a simulator backed by the global math/rand/v2 generator.
func NewDefault() *Simulator {
	return New(globalSource{})
}

// Regulation draws a full-time score: two halves, independent Poisson draws per
// side. Rates are clamped to the team rate range; without influence both sides
// play as equals.
func (s *Simulator) Regulation(homeRate, awayRate float64, influence bool) models.Score {
	homeLambda, awayLambda := s.lambdas(homeRate, awayRate, influence)
	var score models.Score
	for half := 0; half < 2; half++ {
		score.Home += s.Poisson(homeLambda * s.form())
		score.Away += s.Poisson(awayLambda * s.form())
	}
	return score
}

// ExtraTime draws the extra-time goals, one third of a half's expectation per
// side. With golden goal only the first goal stands.
func (s *Simulator) ExtraTime(homeRate, awayRate float64, influence, goldenGoal bool) models.Score {
	homeLambda, awayLambda := s.lambdas(homeRate, awayRate, influence)
	score := models.Score{
		Home: s.Poisson(homeLambda * s.form() / 3),
		Away: s.Poisson(awayLambda * s.form() / 3),
	}
	if !goldenGoal || score.Home+score.Away == 0 {
		return score
	}
	// Whoever scored more is more likely to have scored first.
	if s.rng.Float64()*float64(score.Home+score.Away) < float64(score.Home) {
		return models.Score{Home: 1}
	}
	return models.Score{Away: 1}
}

// Penalties returns a decisive shootout: the loser scores 2 to 4 and the
// winner one or two more. The winner is a coin flip.
func (s *Simulator) Penalties() models.Score {
	loser := 2 + s.intn(3)
	winner := loser + 1 + s.intn(2)
	if s.rng.Float64() < 0.5 {
		return models.Score{Home: winner, Away: loser}
	}
	return models.Score{Home: loser, Away: winner}
}

// Poisson draws from a Poisson distribution with the given mean (Knuth).
func (s *Simulator) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= limit || k >= maxDraw {
			return k
		}
		k++
	}
}

func (s *Simulator) lambdas(homeRate, awayRate float64, influence bool) (float64, float64) {
	if !influence {
		return s.BaseRate, s.BaseRate
	}
	homeRate, awayRate = models.ClampRate(homeRate), models.ClampRate(awayRate)
	return math.Sqrt(homeRate/awayRate) * s.BaseRate, math.Sqrt(awayRate/homeRate) * s.BaseRate
}

// form is a random multiplier in [0.8, 1.2).
func (s *Simulator) form() float64 {
	return 0.8 + 0.4*s.rng.Float64()
}

func (s *Simulator) intn(n int) int {
	v := int(s.rng.Float64() * float64(n))
	return min(v, n-1)
}

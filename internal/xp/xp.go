// Package xp computes the experience awarded for grading a copy and keeps the
// user's level in step with accumulated XP.
package xp

import (
	"math"
	"unicode/utf8"

	"github.com/pavelanni/classbook/internal/model"
)

const (
	// ExpectedSecondsPerCopy is the reference grading time. Grading faster
	// earns a time bonus, slower earns none.
	ExpectedSecondsPerCopy = 300

	// Comments longer than this many characters count as detailed.
	detailedCommentLen = 20

	timeBonusRate     = 0.5
	accuracyBonusRate = 0.3
	commentsBonus     = 0.5
)

// Award is an XP grant broken into its components. Total is the rounded sum.
type Award struct {
	Base          float64 `json:"base"`
	TimeBonus     float64 `json:"timeBonus"`
	AccuracyBonus float64 `json:"accuracyBonus"`
	Total         int     `json:"total"`
}

// Calculate returns the award for a first grading. criteria is the saved
// criteria tree and comments the saved free-text feedback.
func Calculate(baseXP float64, gradingSeconds int, criteria []model.CriterionDetail, comments string) Award {
	maxTime := baseXP * timeBonusRate
	timeFraction := float64(gradingSeconds) / ExpectedSecondsPerCopy
	timeBonus := clamp(maxTime*(1-timeFraction), 0, maxTime)

	accuracy := UsedCriteriaRatio(criteria)
	if utf8.RuneCountInString(comments) > detailedCommentLen {
		accuracy += commentsBonus
	}
	accuracyBonus := baseXP * accuracyBonusRate * accuracy

	return Award{
		Base:          baseXP,
		TimeBonus:     timeBonus,
		AccuracyBonus: accuracyBonus,
		Total:         int(math.Round(baseXP + timeBonus + accuracyBonus)),
	}
}

// UsedCriteriaRatio is the share of criteria that received points. It is 0
// when there are no criteria.
func UsedCriteriaRatio(criteria []model.CriterionDetail) float64 {
	if len(criteria) == 0 {
		return 0
	}
	used := 0
	for _, c := range criteria {
		if c.Points > 0 {
			used++
		}
	}
	return float64(used) / float64(len(criteria))
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		// negative base XP
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(v, hi))
}

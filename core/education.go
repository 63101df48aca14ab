package core

import (
	"fmt"
	"math"
	"time"
)

// Education levels
const (
	LevelMaternelle = "MATERNELLE"
	LevelPrimaire   = "PRIMAIRE"
	LevelSecondaire = "SECONDAIRE"
)

// Maternelle appreciations
const (
	AppreciationAcquired   = "A"  // acquis
	AppreciationInProgress = "EA" // en cours d'acquisition
	AppreciationNotYet     = "NA" // non acquis
)

var (
	EducationLevels = []string{LevelMaternelle, LevelPrimaire, LevelSecondaire}
	Appreciations   = []string{AppreciationAcquired, AppreciationInProgress, AppreciationNotYet}
)

// GradingScale describes how grades are expressed for an education level.
type GradingScale struct {
	Level       string  `json:"level"`
	Qualitative bool    `json:"qualitative"` // appreciations instead of numeric scores
	Max         float64 `json:"max"`
	Step        float64 `json:"step"`
	PassMark    float64 `json:"pass_mark"`
}

type levelRules struct {
	scale          GradingScale
	minAge, maxAge int
	maxCapacity    int
	minCoef        int
	maxCoef        int
}

var educationRules = map[string]levelRules{
	LevelMaternelle: {
		scale:  GradingScale{Level: LevelMaternelle, Qualitative: true},
		minAge: 2, maxAge: 6,
		maxCapacity: 30,
		minCoef:     1, maxCoef: 1,
	},
	LevelPrimaire: {
		scale:  GradingScale{Level: LevelPrimaire, Max: 10, Step: 0.5, PassMark: 5},
		minAge: 5, maxAge: 13,
		maxCapacity: 50,
		minCoef:     1, maxCoef: 10,
	},
	LevelSecondaire: {
		scale:  GradingScale{Level: LevelSecondaire, Max: 20, Step: 0.25, PassMark: 10},
		minAge: 10, maxAge: 25,
		maxCapacity: 60,
		minCoef:     1, maxCoef: 10,
	},
}

func IsEducationLevel(level string) bool {
	_, ok := educationRules[level]
	return ok
}

// ScaleFor returns the grading scale of the given level.
func ScaleFor(level string) (GradingScale, bool) {
	r, ok := educationRules[level]
	return r.scale, ok
}

// CheckScore validates a numeric score against the level's scale.
func (gs GradingScale) CheckScore(score float64) error {
	if gs.Qualitative {
		return fmt.Errorf("numeric scores are not used for %s, use an appreciation", gs.Level)
	}
	if score < 0 || score > gs.Max {
		return fmt.Errorf("score must be between 0 and %g", gs.Max)
	}
	if gs.Step > 0 {
		steps := score / gs.Step
		if math.Abs(steps-math.Round(steps)) > 1e-9 {
			return fmt.Errorf("score must be a multiple of %g", gs.Step)
		}
	}
	return nil
}

// CheckAppreciation validates a qualitative mark.
func (gs GradingScale) CheckAppreciation(appr string) error {
	if !gs.Qualitative {
		return fmt.Errorf("appreciations are only used for %s", LevelMaternelle)
	}
	if !StringInSlice(appr, Appreciations) {
		return fmt.Errorf("appreciation must be one of %v", Appreciations)
	}
	return nil
}

// AgeAt returns the age in full years at the given date.
func AgeAt(dob, at time.Time) int {
	dob, at = dob.UTC(), at.UTC()
	age := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		age--
	}
	return age
}

// CheckAge checks that a pupil born on `dob` may attend a class of `level` at date `at`.
func CheckAge(level string, dob, at time.Time) error {
	r, ok := educationRules[level]
	if !ok {
		return fmt.Errorf("unknown education level %q", level)
	}
	age := AgeAt(dob, at)
	if age < r.minAge || age > r.maxAge {
		return fmt.Errorf("age must be between %d and %d for %s (got %d)", r.minAge, r.maxAge, level, age)
	}
	return nil
}

// MaxCapacity is the largest class size allowed for the level.
func MaxCapacity(level string) int {
	return educationRules[level].maxCapacity
}

// CheckCoefficient checks that a subject coefficient fits the level.
func CheckCoefficient(level string, coef int) error {
	r, ok := educationRules[level]
	if !ok {
		return fmt.Errorf("unknown education level %q", level)
	}
	if coef < r.minCoef || coef > r.maxCoef {
		if r.minCoef == r.maxCoef {
			return fmt.Errorf("coefficient must be %d for %s", r.minCoef, level)
		}
		return fmt.Errorf("coefficient must be between %d and %d", r.minCoef, r.maxCoef)
	}
	return nil
}

// Mention returns the honours label for an average expressed on the level's scale.
func (gs GradingScale) Mention(avg float64) string {
	if gs.Qualitative || gs.Max == 0 {
		return ""
	}
	// thresholds are on /20
	on20 := avg * 20 / gs.Max
	switch {
	case on20 >= 16:
		return "Très bien"
	case on20 >= 14:
		return "Bien"
	case on20 >= 12:
		return "Assez bien"
	case on20 >= 10:
		return "Passable"
	default:
		return "Insuffisant"
	}
}

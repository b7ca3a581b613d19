// Package sentiment scores user utterances with a small valence lexicon
// so the dialogue layer can bias motions and phrasing by mood. It is a
// deliberately lightweight stand-in for a full VADER analysis: token
// valences are summed, damped by a negation window, and normalized into
// a compound score on [-1, 1].
package sentiment

import (
	"fmt"
	"math"
	"strings"
)

// Mood labels derived from the compound score.
const (
	MoodPositive = "positive"
	MoodNegative = "negative"
	MoodNeutral  = "neutral"
)

// compound thresholds, matching the conventional VADER cut-offs.
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// negators flip the valence of the following scored token.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "dont": true, "don't": true,
	"cant": true, "can't": true, "wont": true, "won't": true, "isnt": true,
	"isn't": true, "aint": true, "ain't": true, "hardly": true,
}

var lexicon = map[string]float64{
	"good": 1.9, "great": 3.1, "awesome": 3.1, "amazing": 2.8, "excellent": 2.7,
	"love": 3.2, "like": 1.5, "happy": 2.7, "glad": 2.0, "wonderful": 2.7,
	"fantastic": 2.6, "nice": 1.8, "fun": 2.3, "cool": 1.3, "best": 3.2,
	"thanks": 1.9, "thank": 1.9, "please": 1.1, "yes": 1.7, "perfect": 2.7,
	"bad": -2.5, "terrible": -2.1, "awful": -2.0, "horrible": -2.5,
	"hate": -2.7, "sad": -2.1, "angry": -2.3, "upset": -1.6, "annoying": -1.8,
	"worst": -3.1, "broken": -1.6, "wrong": -2.1, "stupid": -2.4,
	"boring": -1.3, "no": -1.2, "stop": -0.9, "problem": -1.7, "sorry": -0.3,
}

// Analyzer scores text. The zero value is not usable; use New.
type Analyzer struct {
	lexicon map[string]float64
}

// New returns an analyzer backed by the built-in lexicon.
func New() *Analyzer {
	return &Analyzer{lexicon: lexicon}
}

// Compound returns the normalized valence of text on [-1, 1].
func (a *Analyzer) Compound(text string) float64 {
	tokens := tokenize(text)

	var sum float64
	negate := false
	for _, tok := range tokens {
		if negators[tok] {
			negate = true
			continue
		}
		v, ok := a.lexicon[tok]
		if !ok {
			continue
		}
		if negate {
			v = -v * 0.74
			negate = false
		}
		sum += v
	}
	if sum == 0 {
		return 0
	}
	// VADER's alpha normalization keeps the score inside (-1, 1).
	return sum / math.Sqrt(sum*sum+15)
}

// Mood maps a compound score to one of the mood labels.
func Mood(compound float64) string {
	switch {
	case compound >= positiveThreshold:
		return MoodPositive
	case compound <= negativeThreshold:
		return MoodNegative
	default:
		return MoodNeutral
	}
}

// MoodOf is shorthand for Mood(Compound(text)).
func (a *Analyzer) MoodOf(text string) string {
	return Mood(a.Compound(text))
}

// Apology formats the spoken reply for an internal failure. The detail is
// kept short so the robot does not read a stack trace aloud.
func Apology(err error) string {
	detail := "an unknown error"
	if err != nil {
		detail = err.Error()
		if len(detail) > 80 {
			detail = detail[:80]
		}
	}
	return fmt.Sprintf("Sorry, I encountered an issue: %s", detail)
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"()")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

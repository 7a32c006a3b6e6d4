// Package learner runs the nightly routine-learning pipeline: it scores
// how surprising yesterday's slot activity was under the current model,
// then updates the per-(slot, channel) Beta posterior with that day's
// observations.
package learner

import (
	"math"

	"github.com/BBBoring2025/annem-guvende/internal/beta"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// DailyMetrics computes every pre-update metric for one day's slot data
// against the current model: per-channel NLL, total NLL, expected vs.
// observed event counts and their z-score, and awake-window accuracy.
// Pure function — no I/O, so it is the same code path whether called
// live or from a test fixture.
func DailyMetrics(slotData map[string][]int, model map[string][]beta.Posterior, awakeStart, awakeEnd int, channels []string) store.DailyMetrics {
	nllByChannel := make(map[string]float64, len(channels))
	var nllTotal float64
	for _, ch := range channels {
		var nll float64
		for slot := 0; slot < store.SlotsPerDay; slot++ {
			nll += model[ch][slot].NLL(slotData[ch][slot])
		}
		nllByChannel[ch] = nll
		nllTotal += nll
	}

	var expected, varCount float64
	var observed int
	for _, ch := range channels {
		for slot := 0; slot < store.SlotsPerDay; slot++ {
			mean := model[ch][slot].Mean()
			expected += mean
			varCount += mean * (1 - mean)
			observed += slotData[ch][slot]
		}
	}
	countZ := 0.0
	if varCount > 0 {
		countZ = (float64(observed) - expected) / math.Sqrt(varCount)
	}

	acc, balAcc, recall := awakeAccuracy(slotData, model, awakeStart, awakeEnd, channels)

	return store.DailyMetrics{
		NLLPresence:    nllByChannel["presence"],
		NLLFridge:      nllByChannel["fridge"],
		NLLBathroom:    nllByChannel["bathroom"],
		NLLDoor:        nllByChannel["door"],
		NLLTotal:       nllTotal,
		ExpectedCount:  expected,
		ObservedCount:  observed,
		CountZ:         countZ,
		AwAccuracy:     acc,
		AwBalancedAcc:  balAcc,
		AwActiveRecall: recall,
	}
}

// awakeAccuracy scores the model's point predictions (mean >= 0.5 means
// "predicted active") against what actually happened, restricted to the
// awake window [awakeStart, awakeEnd) in slot units.
func awakeAccuracy(slotData map[string][]int, model map[string][]beta.Posterior, awakeStart, awakeEnd int, channels []string) (accuracy, balancedAcc, sensitivity float64) {
	var tp, tn, fp, fn int
	for _, ch := range channels {
		for slot := awakeStart; slot < awakeEnd; slot++ {
			predicted := 0
			if model[ch][slot].Mean() >= 0.5 {
				predicted = 1
			}
			actual := slotData[ch][slot]
			switch {
			case predicted == 1 && actual == 1:
				tp++
			case predicted == 0 && actual == 0:
				tn++
			case predicted == 1 && actual == 0:
				fp++
			default:
				fn++
			}
		}
	}

	total := tp + tn + fp + fn
	if total > 0 {
		accuracy = float64(tp+tn) / float64(total)
	}
	if tp+fn > 0 {
		sensitivity = float64(tp) / float64(tp+fn)
	}
	specificity := 0.0
	if tn+fp > 0 {
		specificity = float64(tn) / float64(tn+fp)
	}
	balancedAcc = (sensitivity + specificity) / 2
	return accuracy, balancedAcc, sensitivity
}

// UpdatePosteriors returns a fresh model with every cell conditioned on
// that day's observation. It never mutates the model passed in.
func UpdatePosteriors(model map[string][]beta.Posterior, slotData map[string][]int, channels []string) map[string][]beta.Posterior {
	updated := make(map[string][]beta.Posterior, len(channels))
	for _, ch := range channels {
		slots := make([]beta.Posterior, store.SlotsPerDay)
		for s := 0; s < store.SlotsPerDay; s++ {
			slots[s] = model[ch][s].Update(slotData[ch][s])
		}
		updated[ch] = slots
	}
	return updated
}

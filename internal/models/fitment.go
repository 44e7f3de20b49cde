// ABOUTME: Structured fitment scoring for requirement decomposition
// ABOUTME: Implements weight renormalization, status bands, and overall score
package models

import (
	"fmt"
	"math"
	"sort"
)

// FitmentStatus is the categorical availability of a (sub)requirement.
type FitmentStatus string

const (
	StatusFullyAvailable     FitmentStatus = "fully_available"
	StatusPartiallyAvailable FitmentStatus = "partially_available"
	StatusNotAvailable       FitmentStatus = "not_available"
)

// NotAvailableResponse is the reserved customer-facing narrative for a
// requirement whose overall status is not_available. Downstream UI
// pattern-matches this string, so it must never be paraphrased.
const NotAvailableResponse = "The requested capability is not available in the current solution."

// Valid reports whether s is one of the three known statuses.
func (s FitmentStatus) Valid() bool {
	switch s {
	case StatusFullyAvailable, StatusPartiallyAvailable, StatusNotAvailable:
		return true
	}
	return false
}

// Subrequirement is one decomposed capability unit inside a Fitment.
type Subrequirement struct {
	ID                    string        `json:"id"`
	Title                 string        `json:"title"`
	Description           string        `json:"description"`
	Weight                int           `json:"weight"`
	Status                FitmentStatus `json:"status"`
	FitmentPercentage     int           `json:"fitment_percentage"`
	CustomizationRequired bool          `json:"customization_required"`
	CustomizationNotes    string        `json:"customization_notes,omitempty"`
	References            []string      `json:"references,omitempty"`
}

// Fitment is the structured scoring object attached to a GeneratedResponse.
type Fitment struct {
	OverallStatus            FitmentStatus    `json:"overall_status"`
	OverallFitmentPercentage int              `json:"overall_fitment_percentage"`
	Subrequirements          []Subrequirement `json:"subrequirements"`
}

// Percentage bands constrained by status. Model output outside its band is
// clamped, not rejected.
const (
	fullyAvailableMin     = 90
	partiallyAvailableMin = 30
	partiallyAvailableMax = 89
)

// ClampPercentage forces a fitment percentage into the band allowed by the
// status: fully_available 90-100, partially_available 30-89, not_available 0.
func ClampPercentage(status FitmentStatus, pct int) int {
	switch status {
	case StatusFullyAvailable:
		if pct < fullyAvailableMin {
			return fullyAvailableMin
		}
		if pct > 100 {
			return 100
		}
	case StatusPartiallyAvailable:
		if pct < partiallyAvailableMin {
			return partiallyAvailableMin
		}
		if pct > partiallyAvailableMax {
			return partiallyAvailableMax
		}
	case StatusNotAvailable:
		return 0
	}
	return pct
}

// RenormalizeWeights rescales subrequirement weights so they sum to exactly
// 100. Returns true when a correction was applied. Weight drift is an LLM
// formatting artifact, so this is a repair, not a validation failure.
func (f *Fitment) RenormalizeWeights() bool {
	n := len(f.Subrequirements)
	if n == 0 {
		return false
	}

	sum := 0
	for _, sr := range f.Subrequirements {
		if sr.Weight > 0 {
			sum += sr.Weight
		}
	}
	if sum == 100 {
		return false
	}

	// All-zero weights: distribute evenly.
	if sum == 0 {
		base := 100 / n
		rem := 100 % n
		for i := range f.Subrequirements {
			f.Subrequirements[i].Weight = base
			if i < rem {
				f.Subrequirements[i].Weight++
			}
		}
		return true
	}

	// Largest-remainder scaling so integer weights land on exactly 100.
	type share struct {
		idx  int
		frac float64
	}
	shares := make([]share, n)
	total := 0
	for i, sr := range f.Subrequirements {
		w := sr.Weight
		if w < 0 {
			w = 0
		}
		exact := float64(w) * 100 / float64(sum)
		floor := int(exact)
		f.Subrequirements[i].Weight = floor
		shares[i] = share{idx: i, frac: exact - float64(floor)}
		total += floor
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].frac != shares[j].frac {
			return shares[i].frac > shares[j].frac
		}
		return shares[i].idx < shares[j].idx
	})
	for i := 0; total < 100 && i < n; i++ {
		f.Subrequirements[shares[i].idx].Weight++
		total++
	}
	return true
}

// DeriveOverallStatus computes the overall status from the subrequirements:
// all fully_available -> fully_available, all not_available -> not_available,
// anything else -> partially_available.
func (f *Fitment) DeriveOverallStatus() FitmentStatus {
	if len(f.Subrequirements) == 0 {
		return StatusNotAvailable
	}
	allFull, allNone := true, true
	for _, sr := range f.Subrequirements {
		if sr.Status != StatusFullyAvailable {
			allFull = false
		}
		if sr.Status != StatusNotAvailable {
			allNone = false
		}
	}
	switch {
	case allFull:
		return StatusFullyAvailable
	case allNone:
		return StatusNotAvailable
	default:
		return StatusPartiallyAvailable
	}
}

// ComputeOverall clamps per-subrequirement percentages to their status bands,
// then sets OverallStatus and OverallFitmentPercentage =
// round(sum(weight_i * fitment_i) / 100). Weights must already sum to 100.
func (f *Fitment) ComputeOverall() {
	weighted := 0.0
	for i := range f.Subrequirements {
		sr := &f.Subrequirements[i]
		sr.FitmentPercentage = ClampPercentage(sr.Status, sr.FitmentPercentage)
		weighted += float64(sr.Weight) * float64(sr.FitmentPercentage)
	}
	f.OverallStatus = f.DeriveOverallStatus()
	f.OverallFitmentPercentage = int(math.Round(weighted / 100))
}

// Validate checks the hard invariants that must hold after repair.
func (f *Fitment) Validate() error {
	sum := 0
	for _, sr := range f.Subrequirements {
		if !sr.Status.Valid() {
			return fmt.Errorf("subrequirement %s: unknown status %q", sr.ID, sr.Status)
		}
		sum += sr.Weight
	}
	if len(f.Subrequirements) > 0 && sum != 100 {
		return fmt.Errorf("subrequirement weights sum to %d, want 100", sum)
	}
	if f.OverallFitmentPercentage < 0 || f.OverallFitmentPercentage > 100 {
		return fmt.Errorf("overall fitment percentage %d out of range", f.OverallFitmentPercentage)
	}
	return nil
}

package grading

import (
	"fmt"
	"sort"

	"github.com/wekesa/registrar/internal/models"
)

// boundaryStep is the resolution of grading-scheme boundaries. Faculty
// schemes quote marks to two decimal places, so adjacent bands must meet
// within this step (e.g. B ends at 69.99, A starts at 70).
const boundaryStep = 0.01

// ValidateScheme checks that a programme's bands form a proper scheme:
// each band has min < max inside [0,100], no two bands overlap, and
// together they cover [0,100] without gaps.
func ValidateScheme(bands []models.GradeBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("empty scheme: %w", ErrInvalidScheme)
	}

	sorted := make([]models.GradeBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinMarks < sorted[j].MinMarks
	})

	for _, b := range sorted {
		if b.MinMarks < 0 || b.MaxMarks > 100 {
			return fmt.Errorf("band %s outside [0,100]: %w", b.Grade, ErrInvalidScheme)
		}
		if b.MinMarks >= b.MaxMarks {
			return fmt.Errorf("band %s has min %.2f >= max %.2f: %w",
				b.Grade, b.MinMarks, b.MaxMarks, ErrInvalidScheme)
		}
	}

	if sorted[0].MinMarks != 0 {
		return fmt.Errorf("scheme does not start at 0: %w", ErrInvalidScheme)
	}
	if sorted[len(sorted)-1].MaxMarks != 100 {
		return fmt.Errorf("scheme does not reach 100: %w", ErrInvalidScheme)
	}

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		gap := cur.MinMarks - prev.MaxMarks
		if gap <= 0 {
			return fmt.Errorf("bands %s and %s overlap: %w", prev.Grade, cur.Grade, ErrInvalidScheme)
		}
		if gap > boundaryStep+1e-9 {
			return fmt.Errorf("gap between bands %s and %s: %w", prev.Grade, cur.Grade, ErrInvalidScheme)
		}
	}

	return nil
}

// bandFor picks the band containing total. Bands are scanned in descending
// min_marks order and matched on total >= min, so a value sitting on a
// shared boundary resolves to the higher band.
func bandFor(bands []models.GradeBand, total float64) (models.GradeBand, bool) {
	sorted := make([]models.GradeBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinMarks > sorted[j].MinMarks
	})

	for _, b := range sorted {
		if total >= b.MinMarks && total <= b.MaxMarks {
			return b, true
		}
	}
	return models.GradeBand{}, false
}

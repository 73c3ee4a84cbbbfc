package simulator

import (
	"fmt"
	"math"

	"github.com/Iron-Ham/researchdesk/internal/research"
)

// StartCompute returns the status at the beginning of a compute run.
func StartCompute(plan research.ExecutionPlan) research.ComputeStatus {
	return research.ComputeStatus{
		Stage:       plan.ComputeStage,
		CurrentItem: ItemLabel(0, plan.TotalItems),
		Progress:    0,
		TotalItems:  plan.TotalItems,
	}
}

// AdvanceCompute adds step to the status's progress, clamping at 100.
// done reports whether the run has completed.
func AdvanceCompute(status research.ComputeStatus, step int) (next research.ComputeStatus, done bool) {
	if step <= 0 {
		step = 1
	}
	next = status
	next.Progress = min(status.Progress+step, 100)
	next.CurrentItem = ItemLabel(next.Progress, status.TotalItems)
	if next.Progress >= 100 {
		next.IntermediateResult = fmt.Sprintf("Processed %d of %d items", status.TotalItems, status.TotalItems)
	}
	return next, next.Progress >= 100
}

// ItemLabel renders "item n/total" where n = ceil(progress/100 * total),
// never below 1.
func ItemLabel(progress, total int) string {
	n := int(math.Ceil(float64(progress) / 100 * float64(total)))
	n = max(1, min(n, total))
	return fmt.Sprintf("item %d/%d", n, total)
}

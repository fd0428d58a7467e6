package pricing

// FallbackEstimate is the degraded-mode price used when the intelligence
// backend is unavailable: half the prior estimate up front, the other half
// released proportionally per selected checklist item. Monotonically
// increasing in selected items and bounded at the prior when everything is
// selected.
func FallbackEstimate(priorEstimate float64, totalItems, selectedItems int) float64 {
	if priorEstimate <= 0 {
		return 0
	}
	if totalItems <= 0 {
		return priorEstimate
	}
	if selectedItems < 0 {
		selectedItems = 0
	}
	if selectedItems > totalItems {
		selectedItems = totalItems
	}
	return 0.5*priorEstimate + (0.5*priorEstimate/float64(totalItems))*float64(selectedItems)
}

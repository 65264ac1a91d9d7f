package suggest

import "threadgenius/internal/model"

const maxWarm = 3

// PickStyleModes assigns a rewrite style to each of n slots. With calmPriority every slot
// but the last is calm; otherwise the first (up to three) slots are warm.
func PickStyleModes(n int, calmPriority bool) []string {
	if n <= 0 {
		return []string{}
	}
	out := make([]string, n)
	for i := range out {
		switch {
		case calmPriority && i < n-1:
			out[i] = model.StyleCalm
		case calmPriority:
			out[i] = model.StyleWarm
		case i < maxWarm:
			out[i] = model.StyleWarm
		default:
			out[i] = model.StyleCalm
		}
	}
	return out
}

package distiller

import "sort"

// sortByPosition orders candidates top to bottom, then left to right within
// rows. A row starts at the first candidate more than tolerance below the
// current row's start. Without complete geometry document order is kept.
func sortByPosition(cands []candidate, tolerance float64) {
	for _, c := range cands {
		if c.box == nil {
			return
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].box.Y < cands[j].box.Y })

	start := 0
	for i := 1; i <= len(cands); i++ {
		if i < len(cands) && cands[i].box.Y-cands[start].box.Y <= tolerance {
			continue
		}
		row := cands[start:i]
		sort.SliceStable(row, func(a, b int) bool { return row[a].box.X < row[b].box.X })
		start = i
	}
}

package export

// Pair holds the two subject names assigned to one slot.
type Pair [2]string

// Grid lays slot pairs out as days (columns) of SlotsPerDay slots (rows).
type Grid struct {
	SlotsPerDay int
	Days        [][]Pair
}

// NewGrid chunks pairs, already sorted by slot order, into days of slotsPerDay.
func NewGrid(pairs []Pair, slotsPerDay int) Grid {
	if slotsPerDay <= 0 {
		slotsPerDay = 5
	}
	grid := Grid{SlotsPerDay: slotsPerDay}
	for start := 0; start < len(pairs); start += slotsPerDay {
		end := start + slotsPerDay
		if end > len(pairs) {
			end = len(pairs)
		}
		day := make([]Pair, end-start)
		copy(day, pairs[start:end])
		grid.Days = append(grid.Days, day)
	}
	return grid
}

// Rows flattens the grid into two rows per slot index. When repeat is set each
// pair of rows is emitted twice, the layout spreadsheet imports expect.
// Days shorter than SlotsPerDay yield empty cells.
func (g Grid) Rows(repeat bool) [][]string {
	if len(g.Days) == 0 {
		return nil
	}
	rows := make([][]string, 0, g.SlotsPerDay*4)
	for slotIdx := 0; slotIdx < g.SlotsPerDay; slotIdx++ {
		first := make([]string, len(g.Days))
		second := make([]string, len(g.Days))
		for day, slots := range g.Days {
			if slotIdx < len(slots) {
				first[day] = slots[slotIdx][0]
				second[day] = slots[slotIdx][1]
			}
		}
		rows = append(rows, first, second)
		if repeat {
			rows = append(rows, first, second)
		}
	}
	return rows
}

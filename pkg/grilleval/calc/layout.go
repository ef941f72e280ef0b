package calc

// GroupLayout describes where one competency group's criterion rows live on
// the grille.
type GroupLayout struct {
	// Rows are the criterion row numbers of the group.
	Rows []int
	// MarkCols are the four level-indicator columns, leftmost = level 0.
	MarkCols [4]string
	// WeightCol is the column holding each row's weight.
	WeightCol string
	// WeightCell is the cell holding the group's own weight.
	WeightCell string
}

// PhaseLayout is the fixed cell layout the replicated score formula reads.
// This table mirrors the formulas embedded in the official template; it is
// deliberately separate from the mapping configuration.
type PhaseLayout struct {
	Groups []GroupLayout
	// BonusCell holds the phase bonus added after scaling.
	BonusCell string
}

// markCols are the four adjacent level-indicator columns shared by every
// grille layout.
var markCols = [4]string{"C", "D", "E", "F"}

// stageLayout: the internship grille carries only the first two competency
// groups.
var stageLayout = PhaseLayout{
	Groups: []GroupLayout{
		{Rows: rowRange(10, 14), MarkCols: markCols, WeightCol: "G", WeightCell: "H10"},
		{Rows: rowRange(17, 20), MarkCols: markCols, WeightCol: "G", WeightCell: "H17"},
	},
	BonusCell: "F23",
}

// standardLayout covers every non-stage phase: four competency groups.
var standardLayout = PhaseLayout{
	Groups: []GroupLayout{
		{Rows: rowRange(12, 16), MarkCols: markCols, WeightCol: "G", WeightCell: "H12"},
		{Rows: rowRange(19, 24), MarkCols: markCols, WeightCol: "G", WeightCell: "H19"},
		{Rows: rowRange(27, 31), MarkCols: markCols, WeightCol: "G", WeightCell: "H27"},
		{Rows: rowRange(34, 37), MarkCols: markCols, WeightCol: "G", WeightCell: "H34"},
	},
	BonusCell: "F45",
}

// LayoutFor returns the fixed row layout of a phase. The stage grille has
// its own reduced layout; every other phase shares the standard one.
func LayoutFor(phase string) PhaseLayout {
	if phase == "stage" {
		return stageLayout
	}
	return standardLayout
}

// rowRange returns the inclusive run of rows from first to last.
func rowRange(first, last int) []int {
	rows := make([]int, 0, last-first+1)
	for r := first; r <= last; r++ {
		rows = append(rows, r)
	}
	return rows
}

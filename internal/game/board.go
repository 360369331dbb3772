package game

import (
	"fmt"
	"iter"
)

// Coord addresses a cell: I is the row, J the column.
type Coord struct {
	I, J int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.I, c.J)
}

// Cell is the occupancy state of one board position.
type Cell struct {
	Occupied bool
	Card     Card
	Owner    Color
}

// PlacedCard is an occupied cell together with its coordinates.
type PlacedCard struct {
	Coord
	Card  Card
	Owner Color
}

// neighbourhood lists the 8 directions, also used as capture directions.
var neighbourhood = [8]Coord{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Board is a rows x cols grid. Cells are stored row-major.
type Board struct {
	rows, cols int
	cells      []Cell
	occupied   int
}

func NewBoard(rows, cols int) *Board {
	return &Board{
		rows:  rows,
		cols:  cols,
		cells: make([]Cell, rows*cols),
	}
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Size returns the number of cells.
func (b *Board) Size() int { return len(b.cells) }

// Occupied returns the number of cards on the board.
func (b *Board) Occupied() int { return b.occupied }

func (b *Board) InBounds(i, j int) bool {
	return i >= 0 && i < b.rows && j >= 0 && j < b.cols
}

func (b *Board) index(i, j int) int {
	return i*b.cols + j
}

// CellAt returns the cell at (i, j).
func (b *Board) CellAt(i, j int) (Cell, error) {
	if !b.InBounds(i, j) {
		return Cell{}, fmt.Errorf("%w: (%d,%d) on %dx%d board", ErrOutOfBounds, i, j, b.rows, b.cols)
	}
	return b.cells[b.index(i, j)], nil
}

// Place puts card on the empty cell (i, j) for owner.
func (b *Board) Place(card Card, owner Color, i, j int) error {
	if !b.InBounds(i, j) {
		return fmt.Errorf("%w: (%d,%d) on %dx%d board", ErrOutOfBounds, i, j, b.rows, b.cols)
	}
	idx := b.index(i, j)
	if b.cells[idx].Occupied {
		return fmt.Errorf("%w: (%d,%d) holds %s", ErrCellOccupied, i, j, b.cells[idx].Card)
	}
	b.cells[idx] = Cell{Occupied: true, Card: card, Owner: owner}
	b.occupied++
	return nil
}

// remove vacates (i, j) and returns what was there. Only captures vacate cells.
func (b *Board) remove(i, j int) Cell {
	idx := b.index(i, j)
	cell := b.cells[idx]
	if cell.Occupied {
		b.cells[idx] = Cell{}
		b.occupied--
	}
	return cell
}

func (b *Board) IsFull() bool {
	return b.occupied == len(b.cells)
}

func (b *Board) IsEmpty() bool {
	return b.occupied == 0
}

// OpeningCells returns the central cell(s) in row-major order: one index per
// odd dimension, two per even dimension.
func (b *Board) OpeningCells() []Coord {
	var cells []Coord
	for _, i := range centre(b.rows) {
		for _, j := range centre(b.cols) {
			cells = append(cells, Coord{i, j})
		}
	}
	return cells
}

func centre(n int) []int {
	if n%2 == 1 {
		return []int{n / 2}
	}
	return []int{n/2 - 1, n / 2}
}

// hasOccupiedNeighbour reports whether any of the 8 neighbours holds a card.
func (b *Board) hasOccupiedNeighbour(i, j int) bool {
	for _, d := range neighbourhood {
		ni, nj := i+d.I, j+d.J
		if b.InBounds(ni, nj) && b.cells[b.index(ni, nj)].Occupied {
			return true
		}
	}
	return false
}

// adjacentEmpty reports whether some empty cell touches an occupied one.
func (b *Board) adjacentEmpty() bool {
	for i := 0; i < b.rows; i++ {
		for j := 0; j < b.cols; j++ {
			if !b.cells[b.index(i, j)].Occupied && b.hasOccupiedNeighbour(i, j) {
				return true
			}
		}
	}
	return false
}

// LegalCellsFor yields the cells where owner may place card.
//
// On an empty board only the opening cells are legal. Otherwise a card must go
// next to (8-directionally) an existing card; when no empty cell touches a
// card, every empty cell is legal. The adjacency rule does not depend on the
// card, so the fallback applies to the whole hand at once.
//
// The sequence reads the board lazily and can be ranged over repeatedly.
func (b *Board) LegalCellsFor(card Card, owner Color) iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		if b.IsEmpty() {
			for _, c := range b.OpeningCells() {
				if !yield(c) {
					return
				}
			}
			return
		}
		requireAdjacent := b.adjacentEmpty()
		for i := 0; i < b.rows; i++ {
			for j := 0; j < b.cols; j++ {
				if b.cells[b.index(i, j)].Occupied {
					continue
				}
				if requireAdjacent && !b.hasOccupiedNeighbour(i, j) {
					continue
				}
				if !yield(Coord{i, j}) {
					return
				}
			}
		}
	}
}

// IsLegal reports whether (i, j) is among LegalCellsFor(card, owner).
func (b *Board) IsLegal(card Card, owner Color, i, j int) bool {
	for c := range b.LegalCellsFor(card, owner) {
		if c.I == i && c.J == j {
			return true
		}
	}
	return false
}

// CanPlace reports whether card has at least one legal cell.
func (b *Board) CanPlace(card Card, owner Color) bool {
	for range b.LegalCellsFor(card, owner) {
		return true
	}
	return false
}

// Cells yields the occupied cells in row-major order.
func (b *Board) Cells() iter.Seq[PlacedCard] {
	return func(yield func(PlacedCard) bool) {
		for idx, cell := range b.cells {
			if !cell.Occupied {
				continue
			}
			pc := PlacedCard{
				Coord: Coord{I: idx / b.cols, J: idx % b.cols},
				Card:  cell.Card,
				Owner: cell.Owner,
			}
			if !yield(pc) {
				return
			}
		}
	}
}

// Snapshot copies the occupied cells for handing to agents.
func (b *Board) Snapshot() []PlacedCard {
	snap := make([]PlacedCard, 0, b.occupied)
	for pc := range b.Cells() {
		snap = append(snap, pc)
	}
	return snap
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return &Board{rows: b.rows, cols: b.cols, cells: cells, occupied: b.occupied}
}

// BoardFromSnapshot rebuilds a board, e.g. on the agent side of the protocol.
func BoardFromSnapshot(rows, cols int, cells []PlacedCard) (*Board, error) {
	b := NewBoard(rows, cols)
	for _, pc := range cells {
		if err := b.Place(pc.Card, pc.Owner, pc.I, pc.J); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// captureLines returns the opponent cards flanked from (i, j) by owner.
//
// Walking away from (i, j) in each direction, the contiguous run of opponent
// cards is captured when it is closed by one of owner's cards, or by the
// board edge when edgeFlank is set. An empty cell ends the run uncaptured.
func (b *Board) captureLines(i, j int, owner Color, edgeFlank bool) []Coord {
	var captured []Coord
	for _, d := range neighbourhood {
		var run []Coord
		ni, nj := i+d.I, j+d.J
		closed := false
		for {
			if !b.InBounds(ni, nj) {
				closed = edgeFlank
				break
			}
			cell := b.cells[b.index(ni, nj)]
			if !cell.Occupied {
				break
			}
			if cell.Owner == owner {
				closed = true
				break
			}
			run = append(run, Coord{ni, nj})
			ni, nj = ni+d.I, nj+d.J
		}
		if closed && len(run) > 0 {
			captured = append(captured, run...)
		}
	}
	return captured
}

// Preview returns the cards that placing card on (i, j) would capture,
// leaving the board untouched. Bots use it to rank their options.
func (b *Board) Preview(card Card, owner Color, i, j int, edgeFlank bool) ([]Card, error) {
	if !b.InBounds(i, j) {
		return nil, fmt.Errorf("%w: (%d,%d) on %dx%d board", ErrOutOfBounds, i, j, b.rows, b.cols)
	}
	if !b.IsLegal(card, owner, i, j) {
		return nil, fmt.Errorf("%w: %s at (%d,%d)", ErrIllegalPlacement, card, i, j)
	}
	cp := b.Clone()
	if err := cp.Place(card, owner, i, j); err != nil {
		return nil, err
	}
	var won []Card
	for _, c := range cp.captureLines(i, j, owner, edgeFlank) {
		won = append(won, cp.cells[cp.index(c.I, c.J)].Card)
	}
	return won, nil
}

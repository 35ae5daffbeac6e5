package main

import "fmt"

const (
	maxPip    = 6
	setSize   = 28
	handSize  = 7
	seatCount = 2
)

// Tile is a single domino, treated as an immutable value. Left/Right record
// its current orientation on the board; for matching purposes [3|4] and [4|3]
// are the same tile.
type Tile struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

func (t Tile) String() string {
	return fmt.Sprintf("[%d|%d]", t.Left, t.Right)
}

// Reversed returns the tile with its faces swapped. Placement reorients by
// copying rather than mutating, so hands and the board never alias.
func (t Tile) Reversed() Tile {
	return Tile{Left: t.Right, Right: t.Left}
}

func (t Tile) IsDouble() bool {
	return t.Left == t.Right
}

// Sum is the tile's pip count, used to settle blocked games.
func (t Tile) Sum() int {
	return t.Left + t.Right
}

// Matches reports whether this tile is the same physical tile as the
// unordered pair (a, b).
func (t Tile) Matches(a, b int) bool {
	return (t.Left == a && t.Right == b) || (t.Left == b && t.Right == a)
}

// newTileSet generates the 28 canonical tiles, [0|0] through [6|6].
func newTileSet() []Tile {
	tiles := make([]Tile, 0, setSize)
	for i := 0; i <= maxPip; i++ {
		for j := i; j <= maxPip; j++ {
			tiles = append(tiles, Tile{Left: i, Right: j})
		}
	}
	return tiles
}

// Side selects which end of the board a tile is played against.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

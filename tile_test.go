package main

import "testing"

func TestNewTileSetIsCanonical(t *testing.T) {
	tiles := newTileSet()

	if len(tiles) != setSize {
		t.Fatalf("expected 28 tiles, got %d", len(tiles))
	}

	seen := make(map[Tile]bool, setSize)
	for _, tile := range tiles {
		if tile.Left < 0 || tile.Left > maxPip || tile.Right < 0 || tile.Right > maxPip {
			t.Fatalf("tile %s out of range", tile)
		}
		if tile.Left > tile.Right {
			t.Fatalf("tile %s not in canonical order", tile)
		}
		if seen[tile] {
			t.Fatalf("tile %s generated twice", tile)
		}
		seen[tile] = true
	}
}

func TestReversedReturnsACopy(t *testing.T) {
	tile := Tile{Left: 2, Right: 5}
	flipped := tile.Reversed()

	if flipped.Left != 5 || flipped.Right != 2 {
		t.Fatalf("expected [5|2], got %s", flipped)
	}
	if tile.Left != 2 || tile.Right != 5 {
		t.Fatalf("Reversed mutated the receiver: %s", tile)
	}
}

func TestMatchesIsUnordered(t *testing.T) {
	tile := Tile{Left: 3, Right: 4}

	if !tile.Matches(3, 4) || !tile.Matches(4, 3) {
		t.Fatalf("%s should match (3,4) in either order", tile)
	}
	if tile.Matches(3, 3) || tile.Matches(4, 4) {
		t.Fatalf("%s matched a tile it is not", tile)
	}
}

func TestDoubleAndSum(t *testing.T) {
	if !(Tile{Left: 6, Right: 6}).IsDouble() {
		t.Fatal("[6|6] not recognized as a double")
	}
	if (Tile{Left: 1, Right: 6}).IsDouble() {
		t.Fatal("[1|6] misidentified as a double")
	}
	if got := (Tile{Left: 2, Right: 5}).Sum(); got != 7 {
		t.Fatalf("expected pip sum 7, got %d", got)
	}
}

package solver

import (
	"strings"
	"testing"
)

const validPuzzle = "530070000600195000098000060800060003400803001700020006060000280000419005000080079"

func TestExtractGrid_FromBareDigits(t *testing.T) {
	t.Parallel()

	grid, ok := ExtractGrid(validPuzzle)
	if !ok {
		t.Fatal("expected a grid")
	}
	if len(grid) != 9 || len(grid[0]) != 9 {
		t.Fatalf("expected 9x9, got %dx%d", len(grid), len(grid[0]))
	}
	if grid[0][0] != 5 || grid[8][8] != 9 {
		t.Errorf("corner digits wrong: %d, %d", grid[0][0], grid[8][8])
	}
}

func TestExtractGrid_FromProse(t *testing.T) {
	t.Parallel()

	text := "Please solve this puzzle:\n" + validPuzzle + "\nThanks!"
	if _, ok := ExtractGrid(text); !ok {
		t.Error("digits embedded in prose should still extract")
	}
}

func TestExtractGrid_DotsAreNotCells(t *testing.T) {
	t.Parallel()

	// Only digits count toward the 81 cells. A dotted puzzle has 30-odd
	// digits and must not be mistaken for a grid.
	dotted := strings.ReplaceAll(validPuzzle, "0", ".")
	if _, ok := ExtractGrid(dotted); ok {
		t.Error("dots must not count as cells")
	}
	// 80 digits padded with a dot is still one digit short.
	if _, ok := ExtractGrid(validPuzzle[:80] + "."); ok {
		t.Error("80 digits plus a dot must not form a grid")
	}
}

func TestExtractGrid_WrongDigitCount(t *testing.T) {
	t.Parallel()

	if _, ok := ExtractGrid(validPuzzle[:80]); ok {
		t.Error("80 digits must not form a grid")
	}
	if _, ok := ExtractGrid(validPuzzle + "1"); ok {
		t.Error("82 digits must not form a grid")
	}
	if _, ok := ExtractGrid("no digits here"); ok {
		t.Error("prose without digits must not form a grid")
	}
}

func TestIsValidSudoku(t *testing.T) {
	t.Parallel()

	grid, _ := ExtractGrid(validPuzzle)
	if !IsValidSudoku(grid) {
		t.Error("known-good puzzle reported invalid")
	}

	// duplicate 5 in row 0
	bad := make([][]int, 9)
	for i := range bad {
		bad[i] = append([]int(nil), grid[i]...)
	}
	bad[0][8] = 5
	if IsValidSudoku(bad) {
		t.Error("row duplicate not detected")
	}

	// duplicate in column 0
	bad2 := make([][]int, 9)
	for i := range bad2 {
		bad2[i] = append([]int(nil), grid[i]...)
	}
	bad2[8][0] = 5
	if IsValidSudoku(bad2) {
		t.Error("column duplicate not detected")
	}

	// duplicate within the top-left box
	bad3 := make([][]int, 9)
	for i := range bad3 {
		bad3[i] = append([]int(nil), grid[i]...)
	}
	bad3[1][1] = 5
	if IsValidSudoku(bad3) {
		t.Error("box duplicate not detected")
	}
}

func TestIsValidSudoku_Shape(t *testing.T) {
	t.Parallel()

	if IsValidSudoku(nil) {
		t.Error("nil grid reported valid")
	}
	if IsValidSudoku(make([][]int, 8)) {
		t.Error("8-row grid reported valid")
	}
}

func TestExtractFenced(t *testing.T) {
	t.Parallel()

	text := "intro\n```\n" + validPuzzle + "\n```\noutro with 123 digits"
	fenced := extractFenced(text)
	if !strings.Contains(fenced, validPuzzle) {
		t.Errorf("fenced content lost: %q", fenced)
	}
	if strings.Contains(fenced, "outro") {
		t.Error("content outside the fence leaked in")
	}
}

func TestPrettyGrid(t *testing.T) {
	t.Parallel()

	grid, _ := ExtractGrid(validPuzzle)
	out := PrettyGrid(grid)
	lines := strings.Split(out, "\n")
	if len(lines) != 9 {
		t.Fatalf("expected 9 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "5 3 .") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}

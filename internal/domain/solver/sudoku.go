package solver

import (
	"strings"
)

// ExtractGrid scans text for digits and returns a 9x9 sudoku grid when the
// text contains exactly 81 of them. Empty cells are written as '0'; any
// other digit count means the text is not a grid.
func ExtractGrid(text string) ([][]int, bool) {
	var digits []int
	for _, r := range text {
		if r < '0' || r > '9' {
			continue
		}
		digits = append(digits, int(r-'0'))
		if len(digits) > 81 {
			return nil, false
		}
	}
	if len(digits) != 81 {
		return nil, false
	}

	grid := make([][]int, 9)
	for row := range grid {
		grid[row] = digits[row*9 : row*9+9]
	}
	return grid, true
}

// extractFenced returns the concatenated contents of ``` fenced blocks, or
// "" when the text has no complete fenced block.
func extractFenced(text string) string {
	var blocks []string
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			break
		}
		rest = rest[open+3:]
		// skip an optional language tag on the fence line
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && nl < 20 {
			rest = rest[nl+1:]
		}
		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		blocks = append(blocks, rest[:end])
		rest = rest[end+3:]
	}
	return strings.Join(blocks, "\n")
}

// IsValidSudoku checks a 9x9 grid for shape, cell range and the uniqueness
// of non-zero digits per row, column and 3x3 box. Zero is an empty cell.
func IsValidSudoku(grid [][]int) bool {
	if len(grid) != 9 {
		return false
	}
	var rows, cols, boxes [9][10]bool
	for r := 0; r < 9; r++ {
		if len(grid[r]) != 9 {
			return false
		}
		for c := 0; c < 9; c++ {
			v := grid[r][c]
			if v < 0 || v > 9 {
				return false
			}
			if v == 0 {
				continue
			}
			b := (r/3)*3 + c/3
			if rows[r][v] || cols[c][v] || boxes[b][v] {
				return false
			}
			rows[r][v] = true
			cols[c][v] = true
			boxes[b][v] = true
		}
	}
	return true
}

// PrettyGrid renders a grid as nine rows of nine digits, '.' for empty
// cells.
func PrettyGrid(grid [][]int) string {
	var b strings.Builder
	for r, row := range grid {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c, v := range row {
			if c > 0 {
				b.WriteByte(' ')
			}
			if v == 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte(byte('0' + v))
			}
		}
	}
	return b.String()
}

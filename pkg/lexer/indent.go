package lexer

import "errors"

// ErrInconsistentIndent is returned when a line's indentation matches no open block.
var ErrInconsistentIndent = errors.New("inconsistent indentation")

// IndentStack records the indentation widths of the open blocks.
// The bottom entry is always 0.
type IndentStack struct {
	levels []int
}

// NewIndentStack returns a stack holding only the top-level width 0.
func NewIndentStack() *IndentStack {
	return &IndentStack{levels: []int{0}}
}

// Top returns the innermost open width.
func (s *IndentStack) Top() int {
	return s.levels[len(s.levels)-1]
}

// Depth returns the number of open blocks above the top level.
func (s *IndentStack) Depth() int {
	return len(s.levels) - 1
}

// Levels returns a copy of the open widths, outermost first.
func (s *IndentStack) Levels() []int {
	out := make([]int, len(s.levels))
	copy(out, s.levels)
	return out
}

// Pop closes the innermost block. The top level is never popped.
func (s *IndentStack) Pop() int {
	if len(s.levels) == 1 {
		return 0
	}
	top := s.Top()
	s.levels = s.levels[:len(s.levels)-1]
	return top
}

// Resolve updates the stack for a new logical line of the given width.
// It reports whether one block was opened and how many were closed.
// A width narrower than the top that matches no open level leaves the
// stack untouched and returns ErrInconsistentIndent.
func (s *IndentStack) Resolve(width int) (indent bool, dedents int, err error) {
	top := s.Top()
	switch {
	case width > top:
		s.levels = append(s.levels, width)
		return true, 0, nil
	case width == top:
		return false, 0, nil
	}

	target := -1
	for i := len(s.levels) - 1; i >= 0; i-- {
		if s.levels[i] == width {
			target = i
			break
		}
	}
	if target < 0 {
		return false, 0, ErrInconsistentIndent
	}
	dedents = len(s.levels) - 1 - target
	s.levels = s.levels[:target+1]
	return false, dedents, nil
}

package token

import "strings"

// State is an opaque snapshot of a lexer's mode between lines.
//
// The state at the start of line N+1 equals the state at the end of line N.
// Follow advances a state past one token, which lets a caller track the
// lexer state while consuming tokens without re-lexing the document.
type State interface {
	// Follow updates the state as if tok had just been consumed.
	Follow(tok Token)

	// Clone returns an independent copy of the state.
	Clone() State

	// Key returns a string that is equal for interchangeable states.
	Key() string
}

// SameState reports whether two states are interchangeable as lexer input.
// A nil state only equals another nil state.
func SameState(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// FollowAll feeds every token to s and returns s.
func FollowAll(s State, tokens []Token) State {
	for _, tok := range tokens {
		s.Follow(tok)
	}
	return s
}

// RootMode is the name of the mode at the bottom of every ModeStack.
const RootMode = "root"

// ModeStack is a State made of a stack of named lexer modes.
// Tokens move it with their Pop and Push fields.
type ModeStack struct {
	modes []string
}

// NewModeStack creates a stack with the given modes above the root mode,
// innermost last.
func NewModeStack(modes ...string) *ModeStack {
	s := &ModeStack{}
	for _, m := range modes {
		if m != "" && m != RootMode {
			s.modes = append(s.modes, m)
		}
	}
	return s
}

// Follow pops tok.Pop modes and then pushes tok.Push.
// Popping never removes the root mode.
func (s *ModeStack) Follow(tok Token) {
	pop := int(tok.Pop)
	if pop > len(s.modes) {
		pop = len(s.modes)
	}
	s.modes = s.modes[:len(s.modes)-pop]
	if tok.Push != "" {
		s.modes = append(s.modes, tok.Push)
	}
}

// Clone returns an independent copy of the stack.
func (s *ModeStack) Clone() State {
	return s.Copy()
}

// Copy is Clone with a concrete result type.
func (s *ModeStack) Copy() *ModeStack {
	modes := make([]string, len(s.modes))
	copy(modes, s.modes)
	return &ModeStack{modes: modes}
}

// Key returns the slash-separated mode path, e.g. "root/comment".
func (s *ModeStack) Key() string {
	if len(s.modes) == 0 {
		return RootMode
	}
	return RootMode + "/" + strings.Join(s.modes, "/")
}

// Top returns the innermost mode.
func (s *ModeStack) Top() string {
	if len(s.modes) == 0 {
		return RootMode
	}
	return s.modes[len(s.modes)-1]
}

// Depth returns the number of modes above the root.
func (s *ModeStack) Depth() int {
	return len(s.modes)
}

// Modes returns a copy of the modes above the root, innermost last.
func (s *ModeStack) Modes() []string {
	modes := make([]string, len(s.modes))
	copy(modes, s.modes)
	return modes
}

// String implements fmt.Stringer.
func (s *ModeStack) String() string {
	return s.Key()
}

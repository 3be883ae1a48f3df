package auction

// History provides linear undo/redo over the auction state using full deep
// snapshots rather than diffs: the moderator UI needs exact structural
// restoration and the mutation surface is small enough that snapshotting is
// cheap relative to correctness risk.
type History struct {
	undo  []State
	redo  []State
	depth int
}

// NewHistory returns a history bounded at the given snapshot depth.
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = 100
	}
	return &History{depth: depth}
}

// Push records the pre-mutation snapshot and clears the redo stack. The
// oldest snapshot is evicted once the bound is reached.
func (h *History) Push(s State) {
	h.undo = append(h.undo, s.Clone())
	if len(h.undo) > h.depth {
		h.undo = h.undo[1:]
	}
	h.redo = h.redo[:0]
}

// Undo exchanges the live state for the most recent snapshot. The live
// state moves onto the redo stack. Returns false when nothing is undoable.
func (h *History) Undo(live State) (State, bool) {
	if len(h.undo) == 0 {
		return State{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, live.Clone())
	return prev, true
}

// Redo is the mirror of Undo.
func (h *History) Redo(live State) (State, bool) {
	if len(h.redo) == 0 {
		return State{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, live.Clone())
	return next, true
}

// Clear drops both stacks. Only a successful reset calls this.
func (h *History) Clear() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}

// CanUndo reports whether an undo snapshot is available.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether a redo snapshot is available.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

package session

// turnState accumulates transcript fragments for the current turn. It is
// mutated only by the demux goroutine; no locking is needed while that
// single-writer invariant holds.
type turnState struct {
	input       []string
	output      []string
	interrupted bool

	// lastHandle survives turn resets; it identifies the resumable session,
	// not the turn.
	lastHandle string
}

// reset starts a fresh turn. Called exactly when a turn-complete event is
// processed.
func (t *turnState) reset() {
	t.input = nil
	t.output = nil
	t.interrupted = false
}

// dedupFragments drops exact repeats while preserving first-seen order. The
// backend emits incremental and consolidated views of the same transcript, so
// repeats are expected.
func dedupFragments(fragments []string) []string {
	if len(fragments) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fragments))
	unique := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		unique = append(unique, f)
	}
	return unique
}

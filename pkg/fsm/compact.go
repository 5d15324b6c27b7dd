package fsm

// Compact reassigns state ids to the contiguous range [0,N) using a
// two-pointer sweep: the lowest free slot below N is paired with the
// highest used id at or above N and the latter is moved into the
// former. It returns the old-id -> new-id mapping for every id that
// was live before compaction, and maps every unused id below the old
// maxID to NullState.
func (m *Machine) Compact() map[State]State {
	mapping := make(map[State]State, m.n)
	newIDOf := make([]State, m.maxID())
	for i := range newIDOf {
		newIDOf[i] = NullState
	}

	low, high := 0, m.maxID()-1
	for low < m.n {
		if m.usedIDs[low] {
			newIDOf[low] = State(low)
			mapping[State(low)] = State(low)
			low++
			continue
		}
		for !m.usedIDs[high] {
			high--
		}
		newIDOf[high] = State(low)
		mapping[State(high)] = State(low)
		low++
		high--
	}
	for oldID, newID := range newIDOf {
		if newID == NullState {
			mapping[State(oldID)] = NullState
		}
	}

	delta := make([][]State, m.n)
	var stateOutputs []Output
	var transitionOutputs [][]Output
	if m.features.hasStateOutputs {
		stateOutputs = make([]Output, m.n)
	}
	if m.features.hasTransitionOutputs {
		transitionOutputs = make([][]Output, m.n)
	}

	for oldID, newID := range newIDOf {
		if newID == NullState {
			continue
		}
		row := make([]State, m.i)
		for a, target := range m.delta[oldID] {
			if target == NullState {
				row[a] = NullState
			} else {
				row[a] = newIDOf[target]
			}
		}
		delta[newID] = row
		if m.features.hasStateOutputs {
			stateOutputs[newID] = m.stateOutputs[oldID]
		}
		if m.features.hasTransitionOutputs {
			outRow := make([]Output, m.i)
			copy(outRow, m.transitionOutputs[oldID])
			transitionOutputs[newID] = outRow
		}
	}

	m.delta = delta
	m.stateOutputs = stateOutputs
	m.transitionOutputs = transitionOutputs
	m.usedIDs = make([]bool, m.n)
	for s := range m.usedIDs {
		m.usedIDs[s] = true
	}

	m.tightenDimensions()
	return mapping
}

// tightenDimensions recomputes the smallest I and O that still cover
// every live transition/output, and shrinks the tables to match, per
// the compactor's dimension-tightening step.
func (m *Machine) tightenDimensions() {
	tightI := 0
	for s := 0; s < m.n; s++ {
		for a := 0; a < m.i; a++ {
			if m.delta[s][a] != NullState && a+1 > tightI {
				tightI = a + 1
			}
		}
	}
	if tightI == 0 {
		tightI = 1
	}

	tightO := 0
	if m.features.hasStateOutputs {
		for s := 0; s < m.n; s++ {
			if m.stateOutputs[s] != DefaultOutput && int(m.stateOutputs[s])+1 > tightO {
				tightO = int(m.stateOutputs[s]) + 1
			}
		}
	}
	if m.features.hasTransitionOutputs {
		for s := 0; s < m.n; s++ {
			for a := 0; a < m.i; a++ {
				if m.transitionOutputs[s][a] != DefaultOutput && int(m.transitionOutputs[s][a])+1 > tightO {
					tightO = int(m.transitionOutputs[s][a]) + 1
				}
			}
		}
	}
	if tightO == 0 {
		tightO = 1
	}

	if tightI < m.i {
		for s := range m.delta {
			m.delta[s] = m.delta[s][:tightI]
			if m.features.hasTransitionOutputs {
				m.transitionOutputs[s] = m.transitionOutputs[s][:tightI]
			}
		}
		m.i = tightI
	}
	if tightO < m.o {
		m.o = tightO
	}
}

package fsm

// AddState adds a new state, recycling the lowest cleared bit of the
// used-id bitmap if one exists, otherwise growing maxID by one. For
// variants with state outputs the supplied output is stored (it must
// be < O or DefaultOutput). Returns the new id, or NullState on a
// rejected output.
func (m *Machine) AddState(out Output) State {
	if m.features.hasStateOutputs && out != DefaultOutput && int(out) >= m.o {
		reject(m.typ.String(), "AddState", InvariantViolation, "bad output %d (increase O first)", out)
		return NullState
	}
	m.reduced = false

	var id State
	if m.n == m.maxID() {
		id = State(m.maxID())
		m.usedIDs = append(m.usedIDs, true)
		if m.features.hasStateOutputs {
			m.stateOutputs = append(m.stateOutputs, out)
		}
		if m.features.hasTransitionOutputs {
			row := make([]Output, m.i)
			for a := range row {
				row[a] = DefaultOutput
			}
			m.transitionOutputs = append(m.transitionOutputs, row)
		}
		row := make([]State, m.i)
		for a := range row {
			row[a] = NullState
		}
		m.delta = append(m.delta, row)
	} else {
		recycled := 0
		for m.usedIDs[recycled] {
			recycled++
		}
		id = State(recycled)
		m.usedIDs[recycled] = true
		if m.features.hasStateOutputs {
			m.stateOutputs[recycled] = out
		}
	}
	m.n++
	return id
}

// SetOutput sets an output value, dispatched per variant: StoutInput
// addresses the state output, a real input addresses the transition
// output (rejected if the variant carries none, or if the cell has no
// transition yet — mirrors Mealy/DFSM setOutput). Moore/DFA reject any
// real input (state output only); Mealy rejects StoutInput.
func (m *Machine) SetOutput(s State, out Output, a Input) bool {
	if !m.IsUsed(s) {
		reject(m.typ.String(), "SetOutput", InvalidIdentifier, "bad state %d", s)
		return false
	}
	if out != DefaultOutput && int(out) >= m.o {
		reject(m.typ.String(), "SetOutput", InvariantViolation, "bad output %d (increase O first)", out)
		return false
	}
	if a == StoutInput {
		if !m.features.hasStateOutputs {
			reject(m.typ.String(), "SetOutput", Capability, "variant has no state outputs")
			return false
		}
		m.stateOutputs[s] = out
		m.reduced = false
		return true
	}
	if !m.features.hasTransitionOutputs {
		reject(m.typ.String(), "SetOutput", Capability, "variant only accepts StoutInput here")
		return false
	}
	if a < 0 || int(a) >= m.i {
		reject(m.typ.String(), "SetOutput", InvalidIdentifier, "bad input %d", a)
		return false
	}
	if m.delta[s][a] == NullState {
		reject(m.typ.String(), "SetOutput", UndefinedTransition, "no such transition from %d on %d", s, a)
		return false
	}
	m.transitionOutputs[s][a] = out
	m.reduced = false
	return true
}

// SetTransition writes delta(from,a) = to and, where the variant
// carries transition outputs, lambda_t(from,a) = out. StoutInput is
// rejected (use SetOutput for state outputs); Moore/DFA reject a
// non-default out argument since they have no transition outputs.
func (m *Machine) SetTransition(from State, a Input, to State, out Output) bool {
	if a == StoutInput {
		reject(m.typ.String(), "SetTransition", InvariantViolation, "use SetOutput for a state output")
		return false
	}
	if !m.IsUsed(from) {
		reject(m.typ.String(), "SetTransition", InvalidIdentifier, "bad state From %d", from)
		return false
	}
	if a < 0 || int(a) >= m.i {
		reject(m.typ.String(), "SetTransition", InvalidIdentifier, "bad input %d", a)
		return false
	}
	if !m.IsUsed(to) {
		reject(m.typ.String(), "SetTransition", InvalidIdentifier, "bad state To %d", to)
		return false
	}
	if !m.features.hasTransitionOutputs && out != DefaultOutput {
		reject(m.typ.String(), "SetTransition", Capability, "variant has no transition outputs, use SetOutput")
		return false
	}
	if out != DefaultOutput && int(out) >= m.o {
		reject(m.typ.String(), "SetTransition", InvariantViolation, "bad output %d (increase O first)", out)
		return false
	}
	m.delta[from][a] = to
	if m.features.hasTransitionOutputs {
		m.transitionOutputs[from][a] = out
	}
	m.reduced = false
	return true
}

// RemoveState clears a state's output and row, and removes every
// incoming transition referencing it. State 0 can never be removed.
func (m *Machine) RemoveState(s State) bool {
	if !m.IsUsed(s) {
		reject(m.typ.String(), "RemoveState", InvalidIdentifier, "bad state %d", s)
		return false
	}
	if s == 0 {
		reject(m.typ.String(), "RemoveState", InvariantViolation, "the initial state cannot be removed")
		return false
	}
	if m.features.hasStateOutputs {
		m.stateOutputs[s] = DefaultOutput
	}
	for r, used := range m.usedIDs {
		if !used {
			continue
		}
		for a := 0; a < m.i; a++ {
			if m.delta[r][a] == s || State(r) == s {
				m.delta[r][a] = NullState
				if m.features.hasTransitionOutputs {
					m.transitionOutputs[r][a] = DefaultOutput
				}
			}
		}
	}
	m.usedIDs[s] = false
	m.n--
	m.reduced = false
	return true
}

// RemoveTransition clears delta(from,a) (and lambda_t(from,a) where
// present). If to or out are supplied (non-sentinel) they must match
// the current cell or the call is rejected as inconsistent.
func (m *Machine) RemoveTransition(from State, a Input, to State, out Output) bool {
	if !m.IsUsed(from) {
		reject(m.typ.String(), "RemoveTransition", InvalidIdentifier, "bad state From %d", from)
		return false
	}
	if a == StoutInput || a < 0 || int(a) >= m.i {
		reject(m.typ.String(), "RemoveTransition", InvalidIdentifier, "bad input %d", a)
		return false
	}
	current := m.delta[from][a]
	if current == NullState {
		reject(m.typ.String(), "RemoveTransition", UndefinedTransition, "no such transition")
		return false
	}
	if to != NullState && current != to {
		reject(m.typ.String(), "RemoveTransition", InvariantViolation, "state To does not match the current target")
		return false
	}
	if m.features.hasTransitionOutputs && out != DefaultOutput && m.transitionOutputs[from][a] != out {
		reject(m.typ.String(), "RemoveTransition", InvariantViolation, "output does not match the current value")
		return false
	}
	m.delta[from][a] = NullState
	if m.features.hasTransitionOutputs {
		m.transitionOutputs[from][a] = DefaultOutput
	}
	m.reduced = false
	return true
}

// IncNumberOfInputs widens every delta row (and lambda_t row, where
// present) by k cells initialized to the sentinel, and grows I by k.
func (m *Machine) IncNumberOfInputs(k int) {
	if k <= 0 {
		return
	}
	for s := range m.delta {
		for c := 0; c < k; c++ {
			m.delta[s] = append(m.delta[s], NullState)
			if m.features.hasTransitionOutputs {
				m.transitionOutputs[s] = append(m.transitionOutputs[s], DefaultOutput)
			}
		}
	}
	m.i += k
	m.reduced = false
}

// IncNumberOfOutputs increases O by k. Rejected for DFA, whose binary
// output alphabet is a type invariant.
func (m *Machine) IncNumberOfOutputs(k int) bool {
	if !m.features.outputsGrowable {
		reject(m.typ.String(), "IncNumberOfOutputs", Capability, "the number of outputs cannot be increased")
		return false
	}
	m.o += k
	m.reduced = false
	return true
}

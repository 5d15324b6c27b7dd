package fsm

import "github.com/projectdiscovery/gologger"

// Machine is a deterministic finite-state machine in one of the four
// variants. It owns its tables wholly; there is no partial ownership
// outside of it, and it performs no internal locking.
type Machine struct {
	typ      Type
	features capabilities

	n int // number of used states
	i int // number of inputs
	o int // number of outputs

	usedIDs []bool // len == maxID; popcount == n

	delta             [][]State  // [state][input] -> state or NullState
	transitionOutputs [][]Output // [state][input] -> output, present iff features.hasTransitionOutputs
	stateOutputs      []Output   // [state] -> output, present iff features.hasStateOutputs

	reduced bool
}

// Create builds an empty machine of the given variant with the
// requested dimensions, clamping the output alphabet to the variant's
// ceiling and the state/input counts to a minimum of 1.
func Create(t Type, numberOfStates, numberOfInputs, numberOfOutputs int) *Machine {
	if numberOfInputs <= 0 {
		gologger.Warning().Msgf("%s.Create: number of inputs must be positive, set to 1", t)
		numberOfInputs = 1
	}
	if numberOfStates <= 0 {
		gologger.Warning().Msgf("%s.Create: number of states must be positive, set to 1", t)
		numberOfStates = 1
	}
	if numberOfOutputs <= 0 {
		gologger.Warning().Msgf("%s.Create: number of outputs must be positive, set to 1", t)
		numberOfOutputs = 1
	}
	maxO := maxOutputsFor(t, numberOfStates, numberOfInputs)
	if numberOfOutputs > maxO {
		gologger.Warning().Msgf("%s.Create: number of outputs reduced to maximum of %d", t, maxO)
		numberOfOutputs = maxO
	}

	m := &Machine{
		typ:      t,
		features: capsFor(t),
		n:        numberOfStates,
		i:        numberOfInputs,
		o:        numberOfOutputs,
	}
	m.usedIDs = make([]bool, numberOfStates)
	for s := range m.usedIDs {
		m.usedIDs[s] = true
	}
	m.clearTransitions()
	if m.features.hasStateOutputs {
		m.clearStateOutputs()
	}
	if m.features.hasTransitionOutputs {
		m.clearTransitionOutputs()
	}
	return m
}

func (m *Machine) clearTransitions() {
	m.delta = make([][]State, m.maxID())
	for s := range m.delta {
		row := make([]State, m.i)
		for a := range row {
			row[a] = NullState
		}
		m.delta[s] = row
	}
}

func (m *Machine) clearStateOutputs() {
	m.stateOutputs = make([]Output, m.maxID())
	for s := range m.stateOutputs {
		m.stateOutputs[s] = DefaultOutput
	}
}

func (m *Machine) clearTransitionOutputs() {
	m.transitionOutputs = make([][]Output, m.maxID())
	for s := range m.transitionOutputs {
		row := make([]Output, m.i)
		for a := range row {
			row[a] = DefaultOutput
		}
		m.transitionOutputs[s] = row
	}
}

// Type returns the machine's variant.
func (m *Machine) Type() Type { return m.typ }

// N returns the number of used states.
func (m *Machine) N() int { return m.n }

// I returns the number of inputs.
func (m *Machine) I() int { return m.i }

// O returns the number of outputs.
func (m *Machine) O() int { return m.o }

// Reduced reports whether the machine is currently known to be in
// canonical minimal form.
func (m *Machine) Reduced() bool { return m.reduced }

// SetReducedForLoad restores the reduced flag read from a serialized
// header. The deserializer trusts the flag rather than reverifying
// minimality on every load.
func (m *Machine) SetReducedForLoad(reduced bool) { m.reduced = reduced }

// HasStateOutputs reports whether this variant carries per-state outputs.
func (m *Machine) HasStateOutputs() bool { return m.features.hasStateOutputs }

// HasTransitionOutputs reports whether this variant carries per-transition outputs.
func (m *Machine) HasTransitionOutputs() bool { return m.features.hasTransitionOutputs }

// maxID returns the size of the used-id bitmap (may exceed N after
// deletions, before compaction).
func (m *Machine) maxID() int { return len(m.usedIDs) }

// MaxID exposes maxID for callers outside the package (serializer, CLI).
func (m *Machine) MaxID() int { return m.maxID() }

// IsUsed reports whether the given state id currently denotes a live state.
func (m *Machine) IsUsed(s State) bool {
	return s >= 0 && int(s) < m.maxID() && m.usedIDs[s]
}

// States returns the sorted collection of state ids currently in use.
func (m *Machine) States() []State {
	out := make([]State, 0, m.n)
	for s, used := range m.usedIDs {
		if used {
			out = append(out, State(s))
		}
	}
	return out
}

// popcount recomputes N from the bitmap.
func (m *Machine) popcount() int {
	c := 0
	for _, used := range m.usedIDs {
		if used {
			c++
		}
	}
	return c
}

// Equal reports whether two machines are structurally equal: same
// variant, N, I, O, reduced flag, and identical behaviour on every
// used state (unused rows are inert and excluded).
func (m *Machine) Equal(other *Machine) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.typ != other.typ || m.n != other.n || m.i != other.i || m.o != other.o || m.reduced != other.reduced {
		return false
	}
	used := m.States()
	otherUsed := other.States()
	if len(used) != len(otherUsed) {
		return false
	}
	for idx, s := range used {
		if s != otherUsed[idx] {
			return false
		}
		for a := 0; a < m.i; a++ {
			if m.delta[s][a] != other.delta[s][a] {
				return false
			}
			if m.features.hasTransitionOutputs && m.transitionOutputs[s][a] != other.transitionOutputs[s][a] {
				return false
			}
		}
		if m.features.hasStateOutputs && m.stateOutputs[s] != other.stateOutputs[s] {
			return false
		}
	}
	return true
}

package fsm

// NextState returns delta(s, a): the state itself when a is
// StoutInput, NullState when there is no transition, or WrongState if
// s is not a used id or a is out of range.
func (m *Machine) NextState(s State, a Input) State {
	if !m.IsUsed(s) {
		reject(m.typ.String(), "NextState", InvalidIdentifier, "bad state id %d", s)
		return WrongState
	}
	if a == StoutInput {
		return s
	}
	if a < 0 || int(a) >= m.i {
		reject(m.typ.String(), "NextState", InvalidIdentifier, "bad input %d", a)
		return WrongState
	}
	return m.delta[s][a]
}

// Output returns the output observed applying a from s: lambda_s(s)
// when a is StoutInput, lambda_t(s,a) for Mealy/DFSM, or
// lambda_s(delta(s,a)) for Moore/DFA — WrongOutput on any invalidity,
// including an undefined target transition.
func (m *Machine) Output(s State, a Input) Output {
	if !m.IsUsed(s) {
		reject(m.typ.String(), "Output", InvalidIdentifier, "bad state id %d", s)
		return WrongOutput
	}
	if a == StoutInput {
		if !m.features.hasStateOutputs {
			reject(m.typ.String(), "Output", Capability, "variant has no state outputs")
			return WrongOutput
		}
		return m.stateOutputs[s]
	}
	if a < 0 || int(a) >= m.i {
		reject(m.typ.String(), "Output", InvalidIdentifier, "bad input %d", a)
		return WrongOutput
	}
	target := m.delta[s][a]
	if target == NullState || !m.IsUsed(target) {
		reject(m.typ.String(), "Output", UndefinedTransition, "no transition from %d on %d", s, a)
		return WrongOutput
	}
	if m.features.hasTransitionOutputs {
		return m.transitionOutputs[s][a]
	}
	return m.stateOutputs[target]
}

// RawTransitionOutput returns lambda_t(s,a) directly from the table
// without requiring delta(s,a) to be defined, for callers (the
// serializer) that must dump every cell including unset placeholders.
// Returns DefaultOutput for variants without transition outputs.
func (m *Machine) RawTransitionOutput(s State, a Input) Output {
	if !m.features.hasTransitionOutputs || !m.IsUsed(s) || a < 0 || int(a) >= m.i {
		return DefaultOutput
	}
	return m.transitionOutputs[s][a]
}

// EndPathState folds NextState over seq, aborting (returning
// WrongState) on the first error.
func (m *Machine) EndPathState(s State, seq Sequence) State {
	for _, a := range seq {
		s = m.NextState(s, a)
		if s == WrongState {
			return WrongState
		}
	}
	return s
}

// OutputAlongPath folds Output over seq. On the first error the walk
// aborts and the result becomes []Output{WrongOutput}.
func (m *Machine) OutputAlongPath(s State, seq Sequence) OutputSequence {
	out := make(OutputSequence, 0, len(seq))
	for _, a := range seq {
		o := m.Output(s, a)
		if o == WrongOutput {
			return OutputSequence{WrongOutput}
		}
		out = append(out, o)
		s = m.NextState(s, a)
		if s == WrongState {
			return OutputSequence{WrongOutput}
		}
	}
	return out
}

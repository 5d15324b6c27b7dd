package fsm

import (
	"math/rand"
	"time"

	"github.com/projectdiscovery/gologger"
)

// Generate produces a strongly-reachable machine of the given variant
// and dimensions using rng as its randomness source. Every used state
// is reachable from state 0; every state other than 0 has in-degree
// >= 1 counting non-self-loop transitions, and state 0 has at least one
// incoming transition (possibly a self loop). Every output value in
// [0,O) is used at least once after histogram repair.
func Generate(t Type, numberOfStates, numberOfInputs, numberOfOutputs int, rng *rand.Rand) *Machine {
	m := Create(t, numberOfStates, numberOfInputs, numberOfOutputs)
	m.reduced = false
	m.generateTransitions(rng)

	stateOutputs, transitionOutputs, firstTransitionOutput := m.outputSplit()
	if m.features.hasStateOutputs {
		m.generateStateOutputs(stateOutputs, rng)
	}
	if m.features.hasTransitionOutputs {
		m.generateTransitionOutputs(transitionOutputs, firstTransitionOutput, rng)
	}
	return m
}

// GenerateWithTimeSeed seeds a fresh pseudo-random stream from
// wall-clock seconds on every call.
// Two calls within the same clock second can return identical machines;
// this is a known, deliberate simplification.
func GenerateWithTimeSeed(t Type, numberOfStates, numberOfInputs, numberOfOutputs int) *Machine {
	return Generate(t, numberOfStates, numberOfInputs, numberOfOutputs, rand.New(rand.NewSource(time.Now().Unix())))
}

// outputSplit implements the DFSM output-split rule: the output range
// is divided into a state-output share and a transition-output share.
// For non-DFSM variants one dimension is unused, so the split is
// trivial (whichever side the variant carries gets the full range).
func (m *Machine) outputSplit() (stateOutputs, transitionOutputs, firstTransitionOutput int) {
	if !m.features.hasStateOutputs || !m.features.hasTransitionOutputs {
		return m.o, m.o, 0
	}
	if m.o < m.n {
		return m.o, m.o, 0
	}
	stateOutputs = m.o / (1 + m.i)
	if stateOutputs < 1 {
		stateOutputs = 1
	}
	transitionOutputs = m.o - stateOutputs
	if transitionOutputs < 1 {
		transitionOutputs = 1
	}
	firstTransitionOutput = m.o - transitionOutputs
	return
}

// generateTransitions builds a coherent (strongly-reachable, every
// state with in-degree >= 1) random transition system: seed every cell
// uniformly, flood-fill from state 0 tracking non-self incoming edges,
// then repeatedly rewire a saturated edge toward the next uncovered
// state until every state has been visited. If no transition then
// enters state 0, one redirectable cell is pointed at it.
func (m *Machine) generateTransitions(rng *rand.Rand) {
	n := m.n
	incoming := make([]int, n)

	for s := 0; s < n; s++ {
		for a := 0; a < m.i; a++ {
			m.delta[s][a] = State(rng.Intn(n))
		}
	}

	var lifo []int
	lifo = append(lifo, 0)
	incoming[0] = 1
	nextUncovered := 1
	covered := 0

	for {
		for len(lifo) > 0 {
			act := lifo[len(lifo)-1]
			lifo = lifo[:len(lifo)-1]
			covered++
			for a := 0; a < m.i; a++ {
				next := int(m.delta[act][a])
				if incoming[next] == 0 {
					lifo = append(lifo, next)
				}
				if act != next {
					incoming[next]++
				}
			}
		}
		if covered == n {
			break
		}

		act := rng.Intn(n)
		stop := act
		a := 0
		for incoming[act] == 0 || incoming[int(m.delta[act][a])] <= 1 || !m.reachableWithoutEdge(State(act), Input(a)) {
			a++
			if a == m.i || incoming[act] == 0 {
				act++
				act %= n
				if act == stop {
					// Fallback: every reachable state only has self
					// loops available to rewire. Bump its own incoming
					// count and rewire the self loop itself, same as
					// any other saturated edge below.
					for incoming[act] < 1 || !m.hasSelfLoop(State(act)) {
						act++
						act %= n
					}
					incoming[act]++
					a = m.selfLoopInput(State(act))
					gologger.Debug().Msgf("%s.Generate: only self loops left to rewire, reusing state %d's self loop", m.typ, act)
					goto connect
				}
				a = 0
			}
		}

	connect:
		for incoming[nextUncovered] > 0 {
			nextUncovered++
		}
		incoming[int(m.delta[act][a])]--
		m.delta[act][a] = State(nextUncovered)
		lifo = append(lifo, nextUncovered)
		incoming[nextUncovered]++
		nextUncovered++

		if covered+1 == n {
			break
		}
	}

	// Nothing above adds an edge into state 0; redirect one cell whose
	// target stays reachable without it.
	for c := 0; c < n*m.i; c++ {
		if m.delta[c/m.i][c%m.i] == 0 {
			return
		}
	}
	for c := 0; c < n*m.i; c++ {
		if m.reachableWithoutEdge(State(c/m.i), Input(c%m.i)) {
			m.delta[c/m.i][c%m.i] = 0
			return
		}
	}
}

func (m *Machine) hasSelfLoop(s State) bool {
	for a := 0; a < m.i; a++ {
		if m.delta[s][a] == s {
			return true
		}
	}
	return false
}

// selfLoopInput returns the input index of s's self loop. Only called
// after hasSelfLoop(s) has confirmed one exists.
func (m *Machine) selfLoopInput(s State) int {
	for a := 0; a < m.i; a++ {
		if m.delta[s][a] == s {
			return a
		}
	}
	return 0
}

// reachableWithoutEdge reports whether the edge's current target is
// reachable from state 0 through some path other than this exact
// (from, a) cell — the rewire-safety probe the rewiring loop depends on.
// State 0 is marked reached before the search starts, so an edge into
// state 0 is never reported as redirectable.
func (m *Machine) reachableWithoutEdge(from State, a Input) bool {
	end := m.delta[from][a]
	reachable := make([]bool, m.n)
	reachable[0] = true
	queue := []State{0}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for ai := 0; ai < m.i; ai++ {
			if s == from && Input(ai) == a {
				continue
			}
			next := m.delta[s][ai]
			if !reachable[next] {
				if next == end {
					return true
				}
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// generateStateOutputs assigns each state an output drawn uniformly
// from [0,nOutputs), then repairs the histogram so every value in
// range is used at least once.
func (m *Machine) generateStateOutputs(nOutputs int, rng *rand.Rand) {
	counts := make([]int, nOutputs)
	for s := 0; s < m.n; s++ {
		v := rng.Intn(nOutputs)
		m.stateOutputs[s] = Output(v)
		counts[v]++
	}
	cursor := 0
	for v := 0; v < nOutputs; v++ {
		if counts[v] != 0 {
			continue
		}
		for counts[m.stateOutputs[cursor]] <= 1 {
			cursor++
		}
		counts[m.stateOutputs[cursor]]--
		m.stateOutputs[cursor] = Output(v)
	}
}

// generateTransitionOutputs mirrors generateStateOutputs for the
// per-transition output table, offsetting values by firstOutput so a
// DFSM's two output ranges stay disjoint when required.
func (m *Machine) generateTransitionOutputs(nOutputs, firstOutput int, rng *rand.Rand) {
	counts := make([]int, nOutputs)
	for s := 0; s < m.n; s++ {
		for a := 0; a < m.i; a++ {
			v := rng.Intn(nOutputs)
			m.transitionOutputs[s][a] = Output(firstOutput + v)
			counts[v]++
		}
	}
	state, input := 0, 0
	for v := 0; v < nOutputs; v++ {
		if counts[v] != 0 {
			continue
		}
		for counts[int(m.transitionOutputs[state][input])-firstOutput] <= 1 {
			input++
			if input == m.i {
				state++
				input = 0
			}
		}
		counts[int(m.transitionOutputs[state][input])-firstOutput]--
		m.transitionOutputs[state][input] = Output(firstOutput + v)
	}
}

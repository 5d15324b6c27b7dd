// Package tests contains property-based tests that verify the kernel
// against the invariants and end-to-end scenarios it is built to satisfy.
package tests

import (
	"math/rand"
	"testing"

	"github.com/dfsmkit/dfsmkit/pkg/fsm"
	"github.com/dfsmkit/dfsmkit/pkg/fsmfile"
)

// =============================================================================
// Universal invariants
// =============================================================================

// TestSpec_Invariant_PopcountMatchesN verifies property 1:
// popcount(usedIDs) == N after generation.
func TestSpec_Invariant_PopcountMatchesN(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := fsm.Generate(fsm.TypeDFSM, 8, 2, 4, rng)
	if got := len(m.States()); got != m.N() {
		t.Fatalf("popcount(usedIDs) = %d, want N = %d", got, m.N())
	}
}

// TestSpec_Invariant_TransitionsTargetUsedOrNull verifies property 2:
// every delta(s,a) is NULL_STATE or a used id.
func TestSpec_Invariant_TransitionsTargetUsedOrNull(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m := fsm.Generate(fsm.TypeMealy, 12, 3, 5, rng)
	for _, s := range m.States() {
		for a := 0; a < m.I(); a++ {
			next := m.NextState(s, fsm.Input(a))
			if next != fsm.NullState && !m.IsUsed(next) {
				t.Fatalf("delta(%d,%d) = %d is neither NULL_STATE nor a used id", s, a, next)
			}
		}
	}
}

// TestSpec_Invariant_OutputsBelowO verifies property 3: every stored
// non-default output is < O.
func TestSpec_Invariant_OutputsBelowO(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := fsm.Generate(fsm.TypeDFSM, 10, 2, 6, rng)
	for _, s := range m.States() {
		if out := m.Output(s, fsm.StoutInput); out != fsm.DefaultOutput && int(out) >= m.O() {
			t.Fatalf("state output %d >= O=%d", out, m.O())
		}
		for a := 0; a < m.I(); a++ {
			out := m.RawTransitionOutput(s, fsm.Input(a))
			if out != fsm.DefaultOutput && int(out) >= m.O() {
				t.Fatalf("transition output %d >= O=%d", out, m.O())
			}
		}
	}
}

// TestSpec_Invariant_DFAOutputCeiling verifies property 4 for DFA: O
// never exceeds 2.
func TestSpec_Invariant_DFAOutputCeiling(t *testing.T) {
	m := fsm.Create(fsm.TypeDFA, 5, 2, 3)
	if m.O() != 2 {
		t.Fatalf("DFA O = %d, want 2", m.O())
	}
}

// TestSpec_Invariant_InitialStateAlwaysUsed verifies property 5: state
// 0 is always used, and cannot be removed.
func TestSpec_Invariant_InitialStateAlwaysUsed(t *testing.T) {
	m := fsm.Create(fsm.TypeMoore, 3, 1, 2)
	if !m.IsUsed(0) {
		t.Fatal("state 0 must be used on a freshly created machine")
	}
	if m.RemoveState(0) {
		t.Fatal("RemoveState(0) must be rejected")
	}
}

// TestSpec_Invariant_MinimizeReducedIsNoop verifies property 6:
// minimizing an already-reduced machine leaves it bit-identical.
func TestSpec_Invariant_MinimizeReducedIsNoop(t *testing.T) {
	m := fsm.Create(fsm.TypeMoore, 2, 1, 2)
	m.SetOutput(0, 0, fsm.StoutInput)
	m.SetOutput(1, 1, fsm.StoutInput)
	m.SetTransition(0, 0, 1, fsm.DefaultOutput)
	m.SetTransition(1, 0, 0, fsm.DefaultOutput)
	m.Minimize()
	if !m.Reduced() {
		t.Fatal("expected machine to be reduced after Minimize")
	}

	before := snapshot(m)
	m.Minimize()
	if !m.Reduced() {
		t.Fatal("reduced flag should remain true")
	}
	if !sameSnapshot(before, snapshot(m)) {
		t.Fatal("minimizing an already-reduced machine must be a no-op")
	}
}

// TestSpec_Invariant_MinimizeIdempotent verifies property 7:
// minimize(minimize(M)) == minimize(M).
func TestSpec_Invariant_MinimizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := fsm.Generate(fsm.TypeDFSM, 12, 2, 5, rng)
	m.Minimize()
	once := snapshot(m)
	m.Minimize()
	twice := snapshot(m)
	if !sameSnapshot(once, twice) {
		t.Fatal("minimize is not idempotent")
	}
}

// TestSpec_Invariant_PruneKeepsOutputBehavior verifies property 8:
// removeUnreachableStates preserves output behavior from state 0.
func TestSpec_Invariant_PruneKeepsOutputBehavior(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	m := fsm.Generate(fsm.TypeMealy, 10, 2, 4, rng)
	seqs := []fsm.Sequence{{0}, {1}, {0, 1}, {1, 0, 1}}
	before := make([]fsm.OutputSequence, len(seqs))
	for i, seq := range seqs {
		before[i] = m.OutputAlongPath(0, seq)
	}
	m.RemoveUnreachableStates()
	for i, seq := range seqs {
		after := m.OutputAlongPath(0, seq)
		if !sameOutputs(before[i], after) {
			t.Fatalf("output behavior changed for sequence %v: before %v after %v", seq, before[i], after)
		}
	}
}

// TestSpec_Invariant_RoundTrip verifies property 9: load(save(M))
// equals M.
func TestSpec_Invariant_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	m := fsm.Generate(fsm.TypeDFSM, 6, 2, 4, rng)
	m.Compact()

	dir := t.TempDir()
	path, err := fsmfile.SaveUnique(dir, m)
	if err != nil {
		t.Fatalf("SaveUnique: %v", err)
	}
	loaded, err := fsmfile.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !m.Equal(loaded) {
		t.Fatal("round-tripped machine is not equal to the original")
	}
}

// TestSpec_Invariant_GeneratedConnectivity verifies property 10: every
// generated state is reachable from 0 and has in-degree >= 1.
func TestSpec_Invariant_GeneratedConnectivity(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	for trial := 0; trial < 25; trial++ {
		m := fsm.Generate(fsm.TypeDFSM, 10, 3, 4, rng)
		reachable := map[fsm.State]bool{0: true}
		queue := []fsm.State{0}
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]
			for a := 0; a < m.I(); a++ {
				next := m.NextState(s, fsm.Input(a))
				if next == fsm.NullState || reachable[next] {
					continue
				}
				reachable[next] = true
				queue = append(queue, next)
			}
		}
		if len(reachable) != m.N() {
			t.Fatalf("trial %d: only %d/%d states reachable from 0", trial, len(reachable), m.N())
		}

		incoming := make(map[fsm.State]int)
		for _, s := range m.States() {
			for a := 0; a < m.I(); a++ {
				next := m.NextState(s, fsm.Input(a))
				if next != fsm.NullState {
					incoming[next]++
				}
			}
		}
		for _, s := range m.States() {
			if incoming[s] == 0 {
				t.Fatalf("trial %d: state %d has in-degree 0", trial, s)
			}
		}
	}
}

// TestSpec_Invariant_EveryOutputValueUsed verifies property 11: every
// output value in [0,O) appears at least once after generation.
func TestSpec_Invariant_EveryOutputValueUsed(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := fsm.Generate(fsm.TypeDFSM, 12, 2, 6, rng)
	seen := make([]bool, m.O())
	for _, s := range m.States() {
		if out := m.Output(s, fsm.StoutInput); out != fsm.DefaultOutput {
			seen[out] = true
		}
		for a := 0; a < m.I(); a++ {
			if out := m.RawTransitionOutput(s, fsm.Input(a)); out != fsm.DefaultOutput {
				seen[out] = true
			}
		}
	}
	for v, ok := range seen {
		if !ok {
			t.Fatalf("output value %d never used", v)
		}
	}
}

// =============================================================================
// Concrete end-to-end scenarios
// =============================================================================

// TestSpec_S1_MooreMinimize builds the Moore machine of scenario S1 and
// checks it reduces to two distinguishable, mutually-reachable states.
func TestSpec_S1_MooreMinimize(t *testing.T) {
	m := fsm.Create(fsm.TypeMoore, 4, 1, 2)
	outputs := []fsm.Output{0, 1, 0, 1}
	for s, out := range outputs {
		m.SetOutput(fsm.State(s), out, fsm.StoutInput)
	}
	m.SetTransition(0, 0, 1, fsm.DefaultOutput)
	m.SetTransition(1, 0, 2, fsm.DefaultOutput)
	m.SetTransition(2, 0, 3, fsm.DefaultOutput)
	m.SetTransition(3, 0, 0, fsm.DefaultOutput)

	m.Minimize()
	if m.N() != 2 {
		t.Fatalf("expected 2 states after minimize, got %d", m.N())
	}
	states := m.States()
	if m.Output(states[0], fsm.StoutInput) == m.Output(states[1], fsm.StoutInput) {
		t.Fatal("the two surviving states must have distinct outputs")
	}
	for _, s := range states {
		if other := m.NextState(s, 0); !contains(states, other) {
			t.Fatalf("state %d does not transition within the surviving pair", s)
		}
	}
}

// TestSpec_S2_MealyPruning builds the Mealy machine of scenario S2 and
// checks pruning leaves only the initial state.
func TestSpec_S2_MealyPruning(t *testing.T) {
	m := fsm.Create(fsm.TypeMealy, 3, 1, 1)
	m.SetTransition(0, 0, 0, 0)
	m.SetTransition(1, 0, 2, 0)
	m.SetTransition(2, 0, 1, 0)

	if !m.RemoveUnreachableStates() {
		t.Fatal("expected unreachable states to be pruned")
	}
	if m.N() != 1 {
		t.Fatalf("expected N=1 after pruning, got %d", m.N())
	}
	if got := m.States(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected usedIDs={0}, got %v", got)
	}
}

// TestSpec_S3_DFSMRoundTrip builds a 3-state DFSM with both output
// axes populated and checks a save/load round-trip is exactly equal.
func TestSpec_S3_DFSMRoundTrip(t *testing.T) {
	m := fsm.Create(fsm.TypeDFSM, 3, 2, 4)
	m.SetOutput(0, 0, fsm.StoutInput)
	m.SetOutput(1, 1, fsm.StoutInput)
	m.SetOutput(2, 0, fsm.StoutInput)
	m.SetTransition(0, 0, 1, 2)
	m.SetTransition(0, 1, 2, 3)
	m.SetTransition(1, 0, 2, 2)
	m.SetTransition(1, 1, 0, 3)
	m.SetTransition(2, 0, 0, 2)
	m.SetTransition(2, 1, 1, 3)

	dir := t.TempDir()
	path, err := fsmfile.SaveUnique(dir, m)
	if err != nil {
		t.Fatalf("SaveUnique: %v", err)
	}
	loaded, err := fsmfile.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !m.Equal(loaded) {
		t.Fatal("loaded DFSM does not equal the original")
	}
}

// TestSpec_S4_DFAOutputCap checks scenario S4: create(5,2,3) on DFA
// collapses O to 2, and incNumberOfOutputs is rejected.
func TestSpec_S4_DFAOutputCap(t *testing.T) {
	m := fsm.Create(fsm.TypeDFA, 5, 2, 3)
	if m.O() != 2 {
		t.Fatalf("expected O collapsed to 2, got %d", m.O())
	}
	if m.IncNumberOfOutputs(1) {
		t.Fatal("IncNumberOfOutputs must be rejected for DFA")
	}
}

// TestSpec_S5_GeneratorConnectivity runs scenario S5: 100 DFSM
// generations, each fully connected from state 0 with no starved ids.
func TestSpec_S5_GeneratorConnectivity(t *testing.T) {
	rng := rand.New(rand.NewSource(55))
	for trial := 0; trial < 100; trial++ {
		m := fsm.Generate(fsm.TypeDFSM, 10, 3, 4, rng)
		reachable := map[fsm.State]bool{0: true}
		queue := []fsm.State{0}
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]
			for a := 0; a < m.I(); a++ {
				next := m.NextState(s, fsm.Input(a))
				if next != fsm.NullState && !reachable[next] {
					reachable[next] = true
					queue = append(queue, next)
				}
			}
		}
		if len(reachable) != 10 {
			t.Fatalf("trial %d: reached %d/10 states", trial, len(reachable))
		}
	}
}

// TestSpec_S6_Compaction runs scenario S6: remove two states from a
// 5-state Moore machine and check compaction densifies correctly.
func TestSpec_S6_Compaction(t *testing.T) {
	m := fsm.Create(fsm.TypeMoore, 5, 1, 2)
	for s := 0; s < 5; s++ {
		m.SetOutput(fsm.State(s), fsm.Output(s%2), fsm.StoutInput)
	}
	for s := 0; s < 5; s++ {
		m.SetTransition(fsm.State(s), 0, fsm.State((s+1)%5), fsm.DefaultOutput)
	}

	m.RemoveState(1)
	m.RemoveState(3)

	mapping := m.Compact()
	if m.MaxID() != m.N() || m.N() != 3 {
		t.Fatalf("expected maxId=N=3 after compaction, got maxId=%d N=%d", m.MaxID(), m.N())
	}
	for _, s := range m.States() {
		for a := 0; a < m.I(); a++ {
			next := m.NextState(s, fsm.Input(a))
			if next != fsm.NullState && !m.IsUsed(next) {
				t.Fatalf("post-compaction delta(%d,%d)=%d targets an unused id", s, a, next)
			}
		}
	}
	if len(mapping) == 0 {
		t.Fatal("expected a non-empty old-id -> new-id mapping")
	}
}

// =============================================================================
// helpers
// =============================================================================

func snapshot(m *fsm.Machine) [][]int {
	rows := make([][]int, 0, m.N())
	for _, s := range m.States() {
		row := []int{int(s)}
		if m.HasStateOutputs() {
			row = append(row, int(m.Output(s, fsm.StoutInput)))
		}
		for a := 0; a < m.I(); a++ {
			row = append(row, int(m.NextState(s, fsm.Input(a))))
			if m.HasTransitionOutputs() {
				row = append(row, int(m.RawTransitionOutput(s, fsm.Input(a))))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func sameSnapshot(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func sameOutputs(a, b fsm.OutputSequence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(states []fsm.State, s fsm.State) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

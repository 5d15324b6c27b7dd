package fsmfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/dfsmkit/dfsmkit/pkg/fsm"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// WriteDOT renders m as a Graphviz directed-graph textual description:
// rankdir=LR, one node per state (doublecircle for DFA accepting
// states, a second label line with the state output for Moore/DFA/
// DFSM), one edge per transition labeled "<input>" or, where the
// variant carries transition outputs, "<input> / <output>". Parallel
// transitions between the same pair of states are combined onto one
// edge. Each node additionally gets a pastel HSV fill distinct from
// its neighbors' fills, purely as a textual reading aid — the library
// never rasterizes or otherwise renders the graph itself.
func WriteDOT(w io.Writer, m *fsm.Machine, title string) error {
	var sb strings.Builder

	sb.WriteString("digraph FSM {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11, style=filled];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	if title != "" {
		fmt.Fprintf(&sb, "    labelloc=\"t\";\n    label=\"%s\";\n\n", escapeDOT(title))
	}

	sb.WriteString("    __start [shape=none, label=\"\", width=0, height=0];\n")
	fmt.Fprintf(&sb, "    __start -> %d;\n\n", 0)

	states := m.States()
	for idx, s := range states {
		shape := "circle"
		if m.Type() == fsm.TypeDFA && m.Output(s, fsm.StoutInput) == 1 {
			shape = "doublecircle"
		}
		label := fmt.Sprintf("%d", s)
		if m.HasStateOutputs() {
			label = fmt.Sprintf("%d\\n/%d", s, m.Output(s, fsm.StoutInput))
		}
		fill := statefillColor(idx, len(states))
		fmt.Fprintf(&sb, "    %d [shape=%s, label=\"%s\", fillcolor=\"%s\"];\n", s, shape, label, fill)
	}
	sb.WriteString("\n")

	type edgeKey struct{ from, to fsm.State }
	order := make([]edgeKey, 0)
	labels := make(map[edgeKey][]string)
	for _, s := range states {
		for a := 0; a < m.I(); a++ {
			to := m.NextState(s, fsm.Input(a))
			if to == fsm.NullState {
				continue
			}
			label := fmt.Sprintf("%d", a)
			if m.HasTransitionOutputs() {
				label = fmt.Sprintf("%d / %d", a, m.RawTransitionOutput(s, fsm.Input(a)))
			}
			key := edgeKey{s, to}
			if _, ok := labels[key]; !ok {
				order = append(order, key)
			}
			labels[key] = append(labels[key], label)
		}
	}
	for _, key := range order {
		combined := strings.Join(labels[key], ", ")
		fmt.Fprintf(&sb, "    %d -> %d [label=\"%s\"];\n", key.from, key.to, escapeDOT(combined))
	}

	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// statefillColor spreads N states evenly around the HSV hue wheel at
// fixed, light saturation/value so the fill never obscures the label.
func statefillColor(index, total int) string {
	if total <= 0 {
		total = 1
	}
	hue := 360.0 * float64(index) / float64(total)
	c := colorful.Hsv(hue, 0.35, 0.95)
	return c.Hex()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}

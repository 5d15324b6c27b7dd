// Package fsmfile serializes fsm.Machine values to the stable text
// grammar and graph-description format, and picks collision-free
// filenames for saved machines.
package fsmfile

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dfsmkit/dfsmkit/pkg/fsm"
	"github.com/projectdiscovery/gologger"
)

// VariantTag maps a machine variant to its header tag value.
func VariantTag(t fsm.Type) int {
	switch t {
	case fsm.TypeDFSM:
		return 1
	case fsm.TypeMealy:
		return 2
	case fsm.TypeMoore:
		return 3
	case fsm.TypeDFA:
		return 4
	default:
		return 0
	}
}

// TypeFromTag is the inverse of VariantTag.
func TypeFromTag(tag int) (fsm.Type, bool) {
	switch tag {
	case 1:
		return fsm.TypeDFSM, true
	case 2:
		return fsm.TypeMealy, true
	case 3:
		return fsm.TypeMoore, true
	case 4:
		return fsm.TypeDFA, true
	default:
		return 0, false
	}
}

// WriteText writes m in the ASCII text grammar: a header line followed
// by the variant's blocks in the fixed order (output blocks, then
// transitions). DFSM has no maxId field, so it must already be compact.
func WriteText(w io.Writer, m *fsm.Machine) error {
	if m.Type() == fsm.TypeDFSM && m.MaxID() != m.N() {
		return fmt.Errorf("fsmfile: DFSM must be compact before saving (maxId %d != N %d)", m.MaxID(), m.N())
	}

	reducedFlag := 0
	if m.Reduced() {
		reducedFlag = 1
	}

	header := fmt.Sprintf("%d %d %d %d %d", VariantTag(m.Type()), reducedFlag, m.N(), m.I(), m.O())
	if m.Type() != fsm.TypeDFSM {
		header += fmt.Sprintf(" %d", m.MaxID())
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	if m.HasStateOutputs() {
		if err := writeStateOutputs(w, m); err != nil {
			return err
		}
	}
	if m.Type() == fsm.TypeMealy || m.Type() == fsm.TypeDFSM {
		if err := writeTransitionOutputs(w, m); err != nil {
			return err
		}
	}
	return writeTransitions(w, m)
}

func writeStateOutputs(w io.Writer, m *fsm.Machine) error {
	for _, s := range m.States() {
		if _, err := fmt.Fprintf(w, "%d %d\n", s, m.Output(s, fsm.StoutInput)); err != nil {
			return err
		}
	}
	return nil
}

func writeTransitionOutputs(w io.Writer, m *fsm.Machine) error {
	for _, s := range m.States() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d", s)
		for a := 0; a < m.I(); a++ {
			fmt.Fprintf(&sb, "\t%d", m.RawTransitionOutput(s, fsm.Input(a)))
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeTransitions(w io.Writer, m *fsm.Machine) error {
	for _, s := range m.States() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d", s)
		for a := 0; a < m.I(); a++ {
			fmt.Fprintf(&sb, "\t%d", m.NextState(s, fsm.Input(a)))
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// ReadText parses the ASCII text grammar back into a machine,
// validating every data-model invariant and rejecting on the first violation.
func ReadText(r io.Reader) (*fsm.Machine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		return nil, fmt.Errorf("fsmfile: empty input")
	}
	header := strings.Fields(scanner.Text())
	if len(header) < 5 {
		return nil, fmt.Errorf("fsmfile: malformed header %q", scanner.Text())
	}
	tag, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("fsmfile: bad variant tag: %w", err)
	}
	typ, ok := TypeFromTag(tag)
	if !ok {
		return nil, fmt.Errorf("fsmfile: unknown variant tag %d", tag)
	}
	reducedFlag, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("fsmfile: bad reduced flag: %w", err)
	}
	n, err := strconv.Atoi(header[2])
	if err != nil {
		return nil, fmt.Errorf("fsmfile: bad N: %w", err)
	}
	if n < 1 {
		return nil, fmt.Errorf("fsmfile: N must be >= 1, got %d", n)
	}
	in, err := strconv.Atoi(header[3])
	if err != nil {
		return nil, fmt.Errorf("fsmfile: bad I: %w", err)
	}
	if in < 1 {
		return nil, fmt.Errorf("fsmfile: I must be >= 1, got %d", in)
	}
	out, err := strconv.Atoi(header[4])
	if err != nil {
		return nil, fmt.Errorf("fsmfile: bad O: %w", err)
	}
	if out < 1 {
		return nil, fmt.Errorf("fsmfile: O must be >= 1, got %d", out)
	}

	maxID := n
	if typ != fsm.TypeDFSM {
		if len(header) < 6 {
			return nil, fmt.Errorf("fsmfile: %s header missing maxId", typ)
		}
		maxID, err = strconv.Atoi(header[5])
		if err != nil {
			return nil, fmt.Errorf("fsmfile: bad maxId: %w", err)
		}
	}
	if maxID < n {
		return nil, fmt.Errorf("fsmfile: maxId %d smaller than N %d", maxID, n)
	}

	m := fsm.Create(typ, maxID, in, out)
	usedIDs := make([]bool, maxID)

	readStateOutputs := func() (map[int]int, error) {
		values := make(map[int]int, n)
		for i := 0; i < n; i++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("fsmfile: truncated state-outputs block")
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) != 2 {
				return nil, fmt.Errorf("fsmfile: malformed state-outputs line %q", scanner.Text())
			}
			id, err := strconv.Atoi(fields[0])
			if err != nil || id < 0 || id >= maxID {
				return nil, fmt.Errorf("fsmfile: bad state id in %q", scanner.Text())
			}
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("fsmfile: bad output in %q", scanner.Text())
			}
			values[id] = v
			usedIDs[id] = true
		}
		return values, nil
	}

	readTable := func(width int) (map[int][]int, error) {
		rows := make(map[int][]int, n)
		for i := 0; i < n; i++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("fsmfile: truncated table block")
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) != width+1 {
				return nil, fmt.Errorf("fsmfile: malformed table line %q", scanner.Text())
			}
			id, err := strconv.Atoi(fields[0])
			if err != nil || id < 0 || id >= maxID {
				return nil, fmt.Errorf("fsmfile: bad row id in %q", scanner.Text())
			}
			row := make([]int, width)
			for a := 0; a < width; a++ {
				v, err := strconv.Atoi(fields[a+1])
				if err != nil {
					return nil, fmt.Errorf("fsmfile: bad cell in %q", scanner.Text())
				}
				row[a] = v
			}
			rows[id] = row
			usedIDs[id] = true
		}
		return rows, nil
	}

	var stateOutputs map[int]int
	var transitionOutputs map[int][]int
	var transitions map[int][]int

	if m.HasStateOutputs() {
		stateOutputs, err = readStateOutputs()
		if err != nil {
			return nil, err
		}
	}
	if typ == fsm.TypeMealy || typ == fsm.TypeDFSM {
		transitionOutputs, err = readTable(in)
		if err != nil {
			return nil, err
		}
	}
	transitions, err = readTable(in)
	if err != nil {
		return nil, err
	}

	if !usedIDs[0] {
		return nil, fmt.Errorf("fsmfile: state 0 missing from file, initial state must always be used")
	}
	if popcount(usedIDs) != n {
		return nil, fmt.Errorf("fsmfile: %d distinct row ids, header declares N=%d", popcount(usedIDs), n)
	}

	for id, used := range usedIDs {
		if !used {
			continue
		}
		s := fsm.State(id)
		if m.HasStateOutputs() {
			v, ok := stateOutputs[id]
			if !ok {
				return nil, fmt.Errorf("fsmfile: missing state output for id %d", id)
			}
			if !setStateOutput(m, s, v, out) {
				return nil, fmt.Errorf("fsmfile: invalid state output %d for id %d", v, id)
			}
		}
		row, ok := transitions[id]
		if !ok {
			return nil, fmt.Errorf("fsmfile: id %d has no transitions row", id)
		}
		var txRow []int
		if transitionOutputs != nil {
			txRow, ok = transitionOutputs[id]
			if !ok {
				return nil, fmt.Errorf("fsmfile: id %d has no transition-outputs row", id)
			}
		}
		for a := 0; a < in; a++ {
			target := row[a]
			if target == int(fsm.NullState) {
				continue
			}
			if target < 0 || target >= maxID || !usedIDs[target] {
				return nil, fmt.Errorf("fsmfile: transition from %d on %d targets unused/out-of-range id %d", id, a, target)
			}
			txOut := fsm.DefaultOutput
			if transitionOutputs != nil {
				v := txRow[a]
				if v != int(fsm.DefaultOutput) && (v < 0 || v >= out) {
					return nil, fmt.Errorf("fsmfile: invalid transition output %d from %d on %d", v, id, a)
				}
				txOut = fsm.Output(v)
			}
			if !m.SetTransition(s, fsm.Input(a), fsm.State(target), txOut) {
				return nil, fmt.Errorf("fsmfile: rejected transition from %d on %d to %d", id, a, target)
			}
		}
	}

	removeUnusedSlots(m, usedIDs)
	m.SetReducedForLoad(reducedFlag == 1)
	gologger.Debug().Msgf("fsmfile.ReadText: loaded %s N=%d I=%d O=%d", typ, m.N(), m.I(), m.O())
	return m, nil
}

func setStateOutput(m *fsm.Machine, s fsm.State, v int, out int) bool {
	if v != int(fsm.DefaultOutput) && (v < 0 || v >= out) {
		return false
	}
	return m.SetOutput(s, fsm.Output(v), fsm.StoutInput)
}

// removeUnusedSlots clears any id the header's maxId reserved but no
// row claimed, leaving the machine's used-id bitmap matching the file.
func removeUnusedSlots(m *fsm.Machine, usedIDs []bool) {
	for id := m.MaxID() - 1; id >= 0; id-- {
		if !usedIDs[id] && id != 0 {
			m.RemoveState(fsm.State(id))
		}
	}
}

func popcount(bits []bool) int {
	c := 0
	for _, b := range bits {
		if b {
			c++
		}
	}
	return c
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// UniqueFilename returns "<VariantName>_<R|U><N>.fsm" inside dir,
// appending a random 5-character alphanumeric suffix on collision.
func UniqueFilename(dir string, m *fsm.Machine) (string, error) {
	flag := "U"
	if m.Reduced() {
		flag = "R"
	}
	base := fmt.Sprintf("%s_%s%d.fsm", m.Type(), flag, m.N())
	path := filepath.Join(dir, base)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	}

	stem := strings.TrimSuffix(base, ".fsm")
	for {
		suffix, err := randomAlnum(5)
		if err != nil {
			return "", err
		}
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%s.fsm", stem, suffix))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
}

func randomAlnum(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphanumeric))))
		if err != nil {
			return "", err
		}
		buf[i] = alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}

// SaveUnique writes m to a collision-free path inside dir and returns
// the path actually used.
func SaveUnique(dir string, m *fsm.Machine) (string, error) {
	path, err := UniqueFilename(dir, m)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, m); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	gologger.Info().Msgf("fsmfile.SaveUnique: wrote %s", path)
	return path, nil
}

// LoadFile reads and parses a .fsm text file from disk.
func LoadFile(path string) (*fsm.Machine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadText(f)
}

// SaveFile writes m to the exact path given, overwriting any existing
// file there. Unlike SaveUnique it never changes the requested name.
func SaveFile(path string, m *fsm.Machine) error {
	var buf bytes.Buffer
	if err := WriteText(&buf, m); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	gologger.Info().Msgf("fsmfile.SaveFile: wrote %s", path)
	return nil
}

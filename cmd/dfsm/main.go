// Command dfsm is a CLI for creating, generating, inspecting, and
// canonicalizing deterministic finite-state machines.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dfsmkit/dfsmkit/pkg/fsm"
	"github.com/dfsmkit/dfsmkit/pkg/fsmfile"
	"github.com/projectdiscovery/gologger"
)

const usage = `dfsm - deterministic finite-state machine toolkit

Usage:
  dfsm <command> [options]

Commands:
  create     Build an empty machine of the given dimensions
  generate   Generate a random connected machine
  load       Load a .fsm file and print a summary
  info       Show detailed machine information
  minimize   Minimize a machine and save the result
  prune      Remove unreachable states and save the result
  compact    Re-densify state ids and save the result
  save       Re-write a loaded machine to an exact path
  dot        Emit a Graphviz DOT description

Examples:
  dfsm create --type moore --n 5 --i 2 --o 3 -o out/
  dfsm generate --type dfsm --n 10 --i 2 --o 4 -o out/
  dfsm info machine.fsm
  dfsm minimize machine.fsm -o out/
  dfsm save machine.fsm -o renamed.fsm
  dfsm dot machine.fsm > machine.dot

Subcommands take no -h option; "dfsm help" prints this text.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		cmdCreate(args)
	case "generate":
		cmdGenerate(args)
	case "load":
		cmdLoad(args)
	case "info":
		cmdInfo(args)
	case "minimize":
		cmdMinimize(args)
	case "prune":
		cmdPrune(args)
	case "compact":
		cmdCompact(args)
	case "save":
		cmdSave(args)
	case "dot":
		cmdDot(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func parseVariant(s string) (fsm.Type, bool) {
	switch strings.ToLower(s) {
	case "dfsm":
		return fsm.TypeDFSM, true
	case "mealy":
		return fsm.TypeMealy, true
	case "moore":
		return fsm.TypeMoore, true
	case "dfa":
		return fsm.TypeDFA, true
	default:
		return 0, false
	}
}

func cmdCreate(args []string) {
	typ := fsm.TypeDFSM
	n, i, o := 10, 2, 4
	outDir := "."

	for idx := 0; idx < len(args); idx++ {
		switch args[idx] {
		case "--type":
			idx++
			t, ok := parseVariant(args[idx])
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown variant %q\n", args[idx])
				os.Exit(1)
			}
			typ = t
		case "--n":
			idx++
			n, _ = strconv.Atoi(args[idx])
		case "--i":
			idx++
			i, _ = strconv.Atoi(args[idx])
		case "--o":
			idx++
			o, _ = strconv.Atoi(args[idx])
		case "-o", "--output":
			idx++
			outDir = args[idx]
		}
	}

	m := fsm.Create(typ, n, i, o)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating %s: %v\n", outDir, err)
		os.Exit(1)
	}
	path, err := fsmfile.SaveUnique(outDir, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error saving machine: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(path)
}

func cmdGenerate(args []string) {
	typ := fsm.TypeDFSM
	n, i, o := 10, 2, 4
	outDir := "."
	var seed int64 = -1

	for idx := 0; idx < len(args); idx++ {
		switch args[idx] {
		case "--type":
			idx++
			t, ok := parseVariant(args[idx])
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown variant %q\n", args[idx])
				os.Exit(1)
			}
			typ = t
		case "--n":
			idx++
			n, _ = strconv.Atoi(args[idx])
		case "--i":
			idx++
			i, _ = strconv.Atoi(args[idx])
		case "--o":
			idx++
			o, _ = strconv.Atoi(args[idx])
		case "--seed":
			idx++
			seed, _ = strconv.ParseInt(args[idx], 10, 64)
		case "-o", "--output":
			idx++
			outDir = args[idx]
		}
	}

	var m *fsm.Machine
	if seed >= 0 {
		m = fsm.Generate(typ, n, i, o, rand.New(rand.NewSource(seed)))
	} else {
		m = fsm.GenerateWithTimeSeed(typ, n, i, o)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating %s: %v\n", outDir, err)
		os.Exit(1)
	}
	path, err := fsmfile.SaveUnique(outDir, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error saving machine: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(path)
}

func loadMachine(path string) *fsm.Machine {
	m, err := fsmfile.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading %s: %v\n", path, err)
		os.Exit(1)
	}
	return m
}

func cmdLoad(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: dfsm load <file.fsm>")
		os.Exit(1)
	}
	m := loadMachine(args[0])
	fmt.Printf("%s N=%d I=%d O=%d reduced=%t\n", m.Type(), m.N(), m.I(), m.O(), m.Reduced())
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: dfsm info <file.fsm>")
		os.Exit(1)
	}
	m := loadMachine(args[0])
	fmt.Printf("type:      %s\n", m.Type())
	fmt.Printf("states:    %d (maxId %d)\n", m.N(), m.MaxID())
	fmt.Printf("inputs:    %d\n", m.I())
	fmt.Printf("outputs:   %d\n", m.O())
	fmt.Printf("reduced:   %t\n", m.Reduced())
	fmt.Printf("has state outputs:      %t\n", m.HasStateOutputs())
	fmt.Printf("has transition outputs: %t\n", m.HasTransitionOutputs())
	for _, s := range m.States() {
		row := fmt.Sprintf("  state %d:", s)
		if m.HasStateOutputs() {
			row += fmt.Sprintf(" out=%d", m.Output(s, fsm.StoutInput))
		}
		fmt.Println(row)
		for a := 0; a < m.I(); a++ {
			next := m.NextState(s, fsm.Input(a))
			if next == fsm.NullState {
				continue
			}
			if m.HasTransitionOutputs() {
				fmt.Printf("    on %d -> %d / %d\n", a, next, m.RawTransitionOutput(s, fsm.Input(a)))
			} else {
				fmt.Printf("    on %d -> %d\n", a, next)
			}
		}
	}
}

func cmdMinimize(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: dfsm minimize <file.fsm> [-o outdir]")
		os.Exit(1)
	}
	outDir := filepath.Dir(args[0])
	for idx := 1; idx < len(args); idx++ {
		if args[idx] == "-o" || args[idx] == "--output" {
			idx++
			outDir = args[idx]
		}
	}
	m := loadMachine(args[0])
	before := m.N()
	m.Minimize()
	gologger.Info().Msgf("minimize: %d states before, %d after", before, m.N())
	path, err := fsmfile.SaveUnique(outDir, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error saving machine: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(path)
}

func cmdPrune(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: dfsm prune <file.fsm> [-o outdir]")
		os.Exit(1)
	}
	outDir := filepath.Dir(args[0])
	for idx := 1; idx < len(args); idx++ {
		if args[idx] == "-o" || args[idx] == "--output" {
			idx++
			outDir = args[idx]
		}
	}
	m := loadMachine(args[0])
	removed := m.RemoveUnreachableStates()
	gologger.Info().Msgf("prune: removed unreachable states = %t, N now %d", removed, m.N())
	path, err := fsmfile.SaveUnique(outDir, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error saving machine: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(path)
}

func cmdCompact(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: dfsm compact <file.fsm> [-o outdir]")
		os.Exit(1)
	}
	outDir := filepath.Dir(args[0])
	for idx := 1; idx < len(args); idx++ {
		if args[idx] == "-o" || args[idx] == "--output" {
			idx++
			outDir = args[idx]
		}
	}
	m := loadMachine(args[0])
	m.Compact()
	path, err := fsmfile.SaveUnique(outDir, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error saving machine: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(path)
}

func cmdSave(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: dfsm save <file.fsm> -o <exact-path>")
		os.Exit(1)
	}
	outPath := args[0]
	for idx := 1; idx < len(args); idx++ {
		if args[idx] == "-o" || args[idx] == "--output" {
			idx++
			outPath = args[idx]
		}
	}
	m := loadMachine(args[0])
	if err := fsmfile.SaveFile(outPath, m); err != nil {
		fmt.Fprintf(os.Stderr, "error saving machine: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(outPath)
}

func cmdDot(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: dfsm dot <file.fsm>")
		os.Exit(1)
	}
	m := loadMachine(args[0])
	if err := fsmfile.WriteDOT(os.Stdout, m, strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))); err != nil {
		fmt.Fprintf(os.Stderr, "error writing dot: %v\n", err)
		os.Exit(1)
	}
}

// Command mpst is the MPST toolchain's command-line entry point: it
// parses a global protocol, verifies it, projects every declared role
// (or one named role), and writes the results to disk or stdout.
// Grounded on the teacher's cmd/main.go: stdlib flag parsing, a small
// stdLogger, structured startup/shutdown logging — adapted here from a
// long-running gRPC server to a one-shot CLI invocation.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/cfg"
	"github.com/scribble-mpst/mpst-core/cfsm"
	"github.com/scribble-mpst/mpst-core/config"
	"github.com/scribble-mpst/mpst-core/logging"
	"github.com/scribble-mpst/mpst-core/parser"
	"github.com/scribble-mpst/mpst-core/persist"
	"github.com/scribble-mpst/mpst-core/projector"
	"github.com/scribble-mpst/mpst-core/registry"
	"github.com/scribble-mpst/mpst-core/verifier"
)

const usage = `mpst project <file> [options]

Options:
  -role NAME             project a single role instead of every declared role
  -output-dir DIR        directory to write projected roles into (default ".")
  -format {text|json|both}  output format (default "text")
  -stdin                 read protocol source from stdin instead of <file>
  -skip-verification     skip well-formedness checks before projecting
  -help                  show this message
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "project" {
		fmt.Fprint(stderr, usage)
		return 1
	}

	fs := flag.NewFlagSet("project", flag.ContinueOnError)
	fs.SetOutput(stderr)
	role := fs.String("role", "", "project a single role")
	outputDir := fs.String("output-dir", "", "directory to write projected roles into")
	format := fs.String("format", "", "output format: text, json, both")
	stdinFlag := fs.Bool("stdin", false, "read protocol source from stdin")
	skipVerification := fs.Bool("skip-verification", false, "skip well-formedness checks")
	help := fs.Bool("help", false, "show usage")

	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if *help {
		fmt.Fprint(stdout, usage)
		return 0
	}

	var source string
	if !*stdinFlag {
		rest := fs.Args()
		if len(rest) != 1 {
			fmt.Fprint(stderr, usage)
			return 1
		}
		source = rest[0]
	}

	cliCfg := config.CLIConfig{
		SourceFile:       source,
		Role:             *role,
		OutputDir:        *outputDir,
		Format:           *format,
		SkipVerification: *skipVerification,
		Stdin:            *stdinFlag,
	}
	if err := cliCfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := logging.New().Bind("command", "project")
	return project(cliCfg, logger, stdin, stdout, stderr)
}

func project(cliCfg config.CLIConfig, logger logging.Logger, stdin io.Reader, stdout, stderr io.Writer) int {
	src, name, err := readSource(cliCfg, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	mod, err := parser.Parse(name, src)
	if err != nil {
		fmt.Fprintln(stderr, "parse error:", err)
		return 1
	}
	if len(mod.Protocols) == 0 {
		fmt.Fprintln(stderr, "parse error: no protocol declarations found in", name)
		return 1
	}

	reg, err := registry.FromModule(mod)
	if err != nil {
		fmt.Fprintln(stderr, "parse error:", err)
		return 1
	}

	// The last declared protocol is the one being projected; any
	// preceding declarations exist only to be `do`-invoked from it.
	target := mod.Protocols[len(mod.Protocols)-1]

	g, err := cfg.Build(target)
	if err != nil {
		fmt.Fprintln(stderr, "parse error:", err)
		return 1
	}

	cfsms, err := projector.ProjectAll(g, reg)
	if err != nil {
		fmt.Fprintln(stderr, "projection error:", err)
		return 1
	}

	if !cliCfg.SkipVerification {
		report := verifier.Verify(target, cfsms, reg)
		if !report.Empty() {
			fmt.Fprintln(stderr, report.Error())
			return 1
		}
	}

	if cliCfg.Role != "" {
		m, ok := cfsms[ast.Role(cliCfg.Role)]
		if !ok {
			fmt.Fprintf(stderr, "role %s is not declared in protocol %s\n", cliCfg.Role, target.Name)
			return 1
		}
		cfsms = map[ast.Role]*cfsm.CFSM{ast.Role(cliCfg.Role): m}
	}

	if err := writeResults(cliCfg, cfsms, stdout, logger); err != nil {
		fmt.Fprintln(stderr, "I/O error:", err)
		return 1
	}
	return 0
}

func readSource(cliCfg config.CLIConfig, stdin io.Reader) (src, name string, err error) {
	if cliCfg.Stdin {
		buf, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(buf), "<stdin>", nil
	}
	buf, err := os.ReadFile(cliCfg.SourceFile)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", cliCfg.SourceFile, err)
	}
	return string(buf), cliCfg.SourceFile, nil
}

// writeResults emits one file per role (or prints to stdout when
// --stdin was used without an explicit output directory), per
// spec.md §6.2's "<role>.scr and/or <role>.json" layout.
func writeResults(cliCfg config.CLIConfig, cfsms map[ast.Role]*cfsm.CFSM, stdout io.Writer, logger logging.Logger) error {
	toStdout := cliCfg.Stdin && cliCfg.OutputDir == "."
	if !toStdout {
		if err := os.MkdirAll(cliCfg.OutputDir, 0o755); err != nil {
			return err
		}
	}

	for role, m := range cfsms {
		if cliCfg.Format == "text" || cliCfg.Format == "both" {
			rendered := renderText(m)
			if toStdout {
				fmt.Fprintf(stdout, "=== %s ===\n%s\n", role, rendered)
			} else if err := writeFile(cliCfg.OutputDir, string(role)+".scr", rendered); err != nil {
				return err
			}
		}
		if cliCfg.Format == "json" || cliCfg.Format == "both" {
			data, err := persist.Marshal(m)
			if err != nil {
				return err
			}
			if toStdout {
				fmt.Fprintf(stdout, "=== %s.json ===\n%s\n", role, data)
			} else if err := writeFile(cliCfg.OutputDir, string(role)+".json", string(data)); err != nil {
				return err
			}
		}
		logger.Info("role projected", "role", role)
	}
	return nil
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

// renderText pretty-prints a CFSM as an indented state/transition
// listing, the ".scr" companion to the ".json" persisted form.
func renderText(m *cfsm.CFSM) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "role %s (protocol %s)\n", m.Role, m.ProtocolName)
	for _, s := range m.States {
		marker := ""
		if m.IsTerminal(s.ID) {
			marker = " [terminal]"
		}
		fmt.Fprintf(&b, "  state %s%s\n", s.Label, marker)
		for _, t := range m.Out(s.ID) {
			fmt.Fprintf(&b, "    -- %s --> %s\n", t.Action.String(), m.States[t.To].Label)
		}
	}
	return b.String()
}

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"moonc/ast"
	"moonc/codegen"
	"moonc/trace"
)

func main() {
	inPath := flag.String("in", "-", "Input tree file (JSON wire format, - for stdin)")
	outPath := flag.String("o", "-", "Output C++ file (- for stdout)")
	moduleName := flag.String("module", "", "Translate as an importable module with this name")

	// Trace flags
	traceEnabled := flag.Bool("trace", false, "Enable translation tracing")
	traceFilter := flag.String("trace-filter", "", "Trace filter pattern (glob, e.g., 'str*' or 'forin')")

	// Inspection flags
	dumpTree := flag.Bool("dump-tree", false, "Pretty-print the decoded tree and exit")
	kinds := flag.Bool("kinds", false, "Print a node-kind census and exit")

	flag.Parse()

	if *traceEnabled {
		var filters []string
		if *traceFilter != "" {
			filters = strings.Split(*traceFilter, ",")
		}
		trace.Init(true, filters, os.Stderr)
		log.Printf("Tracing enabled (filter: %q)", *traceFilter)
	}

	root, err := readTree(*inPath)
	if err != nil {
		log.Fatalf("Failed to read tree: %v", err)
	}

	if *dumpTree {
		fmt.Print(ast.Dump(root))
		return
	}
	if *kinds {
		printCensus(root)
		return
	}

	opts := codegen.UnitOptions{Kind: codegen.UnitEntry}
	if *moduleName != "" {
		opts = codegen.UnitOptions{Kind: codegen.UnitModule, Name: *moduleName}
	}

	unit, err := codegen.TranslateUnit(root, opts)
	if err != nil {
		log.Fatalf("Translation failed: %v", err)
	}

	if len(unit.Requires) > 0 {
		log.Printf("Requires: %s", strings.Join(unit.Requires, ", "))
	}
	if len(unit.Provides) > 0 {
		log.Printf("Provides: %s", strings.Join(unit.Provides, ", "))
	}

	if err := writeSource(*outPath, unit.Source()); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

func readTree(path string) (*ast.Node, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return ast.Decode(r)
}

func writeSource(path, source string) error {
	if path == "-" {
		_, err := os.Stdout.WriteString(source)
		return err
	}
	return os.WriteFile(path, []byte(source), 0644)
}

func printCensus(root *ast.Node) {
	counts := make(map[ast.Kind]int)
	ast.KindCensus(root, counts)

	type entry struct {
		kind  ast.Kind
		count int
	}
	entries := make([]entry, 0, len(counts))
	for k, n := range counts {
		entries = append(entries, entry{k, n})
	}
	// Most frequent first, name order on ties
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].kind.String() < entries[j].kind.String()
	})

	for _, e := range entries {
		fmt.Printf("%6d  %s\n", e.count, e.kind)
	}
	fmt.Printf("%6d  total\n", ast.Count(root))
}

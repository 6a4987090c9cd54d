package main

import (
	"flag"
	"fmt"
	"os"

	"gochip8/pkg/asm"
	"gochip8/pkg/utils"
)

func main() {
	outPath := flag.String("o", "", "output ROM path (default: input with .ch8 extension)")
	list := flag.Bool("list", false, "print an address/opcode listing")
	labels := flag.Bool("labels", false, "print the label table")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] source.asm\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	inPath := flag.Arg(0)
	source, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", inPath, err)
		os.Exit(1)
	}

	a := asm.NewAssembler()
	code, sourceMap, err := a.Assemble(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
		os.Exit(1)
	}

	output := *outPath
	if output == "" {
		output = utils.ReplaceExt(inPath, ".ch8")
	}
	if err := os.WriteFile(output, code, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write ROM %q: %v\n", output, err)
		os.Exit(1)
	}
	fmt.Printf("assembled %d bytes -> %s\n", len(code), output)

	if *list {
		if err := writeListing(os.Stdout, a.Origin, code, sourceMap, string(source)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *labels {
		if err := writeLabels(os.Stdout, a.Labels()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

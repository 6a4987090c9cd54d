//go:build !js

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gochip8/pkg/asm"
	"gochip8/pkg/cpu"
	"gochip8/pkg/utils"
)

type runOptions struct {
	cycles int
	trace  bool
	seed   uint64
	logger *slog.Logger
}

func main() {
	inPath := flag.String("in", "", "input assembly file path")
	outPath := flag.String("out", "", "output ROM path (default: input with .ch8 extension)")
	runProgram := flag.Bool("run", false, "run the assembled ROM headless")
	runBinPath := flag.String("run-bin", "", "run an existing ROM headless")
	cycles := flag.Int("cycles", 1000, "maximum number of cycles to run")
	trace := flag.Bool("trace", false, "print every executed instruction")
	seed := flag.Uint64("seed", 1, "random seed")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *runProgram && *runBinPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-bin, not both")
		os.Exit(2)
	}

	assembledOutput := ""
	if *inPath != "" {
		source, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}
		code, _, err := asm.Assemble(string(source))
		if err != nil {
			fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
			os.Exit(1)
		}

		output := *outPath
		if output == "" {
			output = utils.ReplaceExt(*inPath, ".ch8")
		}
		if err := os.WriteFile(output, code, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write ROM %q: %v\n", output, err)
			os.Exit(1)
		}
		fmt.Printf("assembled %d bytes -> %s\n", len(code), output)
		assembledOutput = output
	}

	if *inPath == "" && *runBinPath == "" && !*runProgram {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to assemble, -run to run assembled output, or -run-bin <file> to run an existing ROM")
		flag.Usage()
		os.Exit(2)
	}

	runTarget := ""
	switch {
	case *runBinPath != "":
		runTarget = *runBinPath
	case *runProgram:
		if assembledOutput == "" {
			fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
			os.Exit(2)
		}
		runTarget = assembledOutput
	default:
		return
	}

	rom, err := os.ReadFile(runTarget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read ROM %q: %v\n", runTarget, err)
		os.Exit(1)
	}
	opts := runOptions{cycles: *cycles, trace: *trace, seed: *seed, logger: logger}
	if _, err := runROM(os.Stdout, rom, opts); err != nil {
		fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", runTarget, err)
		os.Exit(1)
	}
}

// runROM executes rom for at most opts.cycles steps without a display or
// keyboard and writes the final machine state to w. A machine fault is
// reported in the state dump, not as an error. Execution also stops on a
// key wait, since nothing can press a key.
func runROM(w io.Writer, rom []byte, opts runOptions) (*cpu.CPU, error) {
	vm := cpu.NewCPU(nil, nil)
	vm.Logger = opts.logger
	vm.SeedRandom(opts.seed)
	if err := vm.LoadProgram(rom); err != nil {
		return nil, err
	}

	for i := 0; i < opts.cycles && !vm.Halted; i++ {
		pc := vm.PC
		if opts.trace && vm.Wait == cpu.Running && int(pc)+1 < cpu.MemorySize {
			op := uint16(vm.Memory[pc])<<8 | uint16(vm.Memory[pc+1])
			fmt.Fprintf(w, "%03X  %04X  %s\n", pc, op, cpu.Decode(op))
		}
		vm.Cycle()
		if vm.Wait == cpu.AwaitingKey {
			break
		}
		// one timer tick per 60 cycles, the desktop's default frame
		if i%60 == 59 {
			vm.TickTimers()
		}
	}

	fmt.Fprint(w, formatState(vm))
	return vm, nil
}

func formatState(vm *cpu.CPU) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PC=0x%03X I=0x%03X SP=%d DT=%d ST=%d cycles=%d wait=%s\n",
		vm.PC, vm.I, vm.SP, vm.DT, vm.ST, vm.Cycles, vm.Wait)
	for i, v := range vm.V {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "V%X=%02X", i, v)
	}
	b.WriteByte('\n')
	if vm.Halted {
		fmt.Fprintf(&b, "halted: %v\n", vm.Fault)
	}
	return b.String()
}

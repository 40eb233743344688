// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"

	"github.com/ezrec/ls8/emulator"
)

const (
	EXIT_HALT  = 0 // Halted by HLT.
	EXIT_USAGE = 1 // Bad arguments, or the program failed to load.
	EXIT_FAULT = 2 // Halted by a fatal machine error.
)

func main() {
	os.Exit(run())
}

// run runs the emulator, and returns the process exit code. Deferred
// cleanup runs before the exit.
func run() (code int) {
	var compile string
	var binary string
	var output string
	var verbose bool
	var trace bool
	var dump bool
	var interactive bool
	var balanced bool
	var hz int

	flag.StringVar(&compile, "c", "", "assembly file to compile and run")
	flag.StringVar(&binary, "b", "", ".ls8 binary file to run")
	flag.StringVar(&output, "o", "-", "PRN output")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&trace, "t", false, "Trace each instruction to stderr")
	flag.BoolVar(&dump, "d", false, "Dump memory to stderr after halting")
	flag.BoolVar(&interactive, "i", false, "Interactive monitor")
	flag.BoolVar(&balanced, "balanced", false, "RET pops the return address")
	flag.IntVar(&hz, "hz", 0, "Clock rate in instructions per second, 0 for unpaced")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Printf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
		return EXIT_USAGE
	}

	path, format := compile, emulator.FORMAT_ASSEMBLY
	if len(binary) != 0 {
		if len(compile) != 0 {
			log.Printf("%v: -c and -b are exclusive", os.Args[0])
			return EXIT_USAGE
		}
		path, format = binary, emulator.FORMAT_BINARY
	}
	if len(path) == 0 {
		flag.Usage()
		return EXIT_USAGE
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Cpu.BalancedReturn = balanced

	err := emu.LoadFormat(path, format)
	if err != nil {
		log.Print(err)
		return EXIT_USAGE
	}

	if output == "-" {
		emu.Tape.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Printf("%v: %v", output, err)
			return EXIT_USAGE
		}
		defer func() {
			err := ouf.Close()
			if err != nil {
				log.Printf("%v: %v", output, err)
				code = max(code, EXIT_USAGE)
			}
		}()
		emu.Tape.Output = ouf
	}

	if trace {
		emu.Trace = &emulator.Trace{
			Output: os.Stderr,
			Color:  isatty.IsTerminal(os.Stderr.Fd()),
		}
	}

	err = emu.Reset()
	if err != nil {
		log.Print(err)
		return EXIT_USAGE
	}

	if interactive {
		err = runMonitor(emu)
		if err != nil {
			log.Print(err)
			return EXIT_USAGE
		}
		err = emu.Cpu.Err
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		err = emu.RunClock(ctx, hz)
	}

	if dump {
		os.Stderr.WriteString(emu.Cpu.String())
		emu.Ram.Dump(os.Stderr)
	}

	switch {
	case err == nil:
		return EXIT_HALT
	case errors.Is(err, context.Canceled):
		log.Printf("interrupted after %d ticks", emu.Ticks())
		return EXIT_USAGE
	default:
		log.Print(err)
		return EXIT_FAULT
	}
}

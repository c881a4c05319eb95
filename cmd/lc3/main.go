// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
	lc3io "github.com/ezrec/lc3/io"
)

func main() {
	var compile string
	var image string
	var write string
	var save bool
	var input string
	var output string
	var dump string
	var trace bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&image, "l", "", ".obj image to load")
	flag.StringVar(&write, "w", "", ".obj image to write")
	flag.BoolVar(&save, "s", false, "Save image only, do not execute")
	flag.StringVar(&input, "i", "-", "Console input")
	flag.StringVar(&output, "o", "-", "Console output")
	flag.StringVar(&dump, "d", "", "Memory dump file, written after halt")
	flag.BoolVar(&trace, "t", false, "Print registers after halt")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) != 0 && len(image) != 0 {
		log.Fatalf("%v: -c and -l are exclusive", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	if len(image) != 0 {
		inf, err := os.Open(image)
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}
		defer inf.Close()

		err = emu.LoadImage(inf)
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}
	}

	if len(write) != 0 {
		ouf, err := os.Create(write)
		if err != nil {
			log.Fatalf("%v: %v", write, err)
		}
		err = lc3io.WriteImage(ouf, emu.Program.Origin, emu.Program.Binary())
		if err == nil {
			err = ouf.Close()
		}
		if err != nil {
			log.Fatalf("%v: %v", write, err)
		}
	}

	if save {
		return
	}

	err := run(emu, input, output)

	if len(dump) != 0 {
		ouf, dump_err := os.Create(dump)
		if dump_err == nil {
			dump_err = emu.Dump(ouf)
			if close_err := ouf.Close(); dump_err == nil {
				dump_err = close_err
			}
		}
		if dump_err != nil {
			log.Printf("%v: %v", dump, dump_err)
		}
	}

	if trace {
		fmt.Fprint(os.Stderr, emu.Cpu.String())
	}

	if err != nil {
		log.Fatal(err)
	}
}

// run executes the program until halt, with the console attached to
// the requested input and output.
func run(emu *emulator.Emulator, input string, output string) (err error) {
	if input == "-" {
		emu.Console.Input = os.Stdin

		// GETC does not echo, so take the terminal out of cooked mode.
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			var state *term.State
			state, err = term.MakeRaw(fd)
			if err != nil {
				return
			}
			defer term.Restore(fd, state)
			emu.Console.Raw = true
		}
	} else {
		inf, err := os.Open(input)
		if err != nil {
			return err
		}
		defer inf.Close()
		emu.Console.Input = inf
	}

	if output == "-" {
		emu.Console.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			return err
		}
		defer ouf.Close()
		emu.Console.Output = ouf
	}

	err = emu.Reset()
	if err != nil {
		return
	}

	return emu.Run()
}

// main.go - Command-line front end for the COSMO-32 emulator

/*
 ▄████▄   ▒█████    ██████  ███▄ ▄███▓ ▒█████       ▄▄▄██▓▒
▒██▀ ▀█  ▒██▒  ██▒▒██    ▒ ▓██▒▀█▀ ██▒▒██▒  ██▒    ▒██▓██▒
▒▓█    ▄ ▒██░  ██░░ ▓██▄   ▓██    ▓██░▒██░  ██▒    ██▓██▒
▒▓▓▄ ▄██▒▒██   ██░  ▒   ██▒▒██    ▒██ ▒██   ██░    ▓█▓██▒
▒ ▓███▀ ░░ ████▓▒░▒██████▒▒▒██▒   ░██▒░ ████▓▒░    ▒██▒ ░
░ ░▒ ▒  ░░ ▒░▒░▒░ ▒ ▒▓▒ ▒ ░░ ▒░   ░  ░░ ▒░▒░▒░     ▒ ░░
  ░  ▒     ░ ▒ ▒░ ░ ░▒  ░ ░░  ░      ░  ░ ▒ ▒░       ░
░          ░ ░ ░ ▒  ░  ░   ░      ░   ░ ░ ░ ▒      ░
░ ░            ░ ░        ░      ░        ░ ░

COSMO-32 — RV32IMAC embedded platform emulator
License: GPLv3 or later
*/

// CLI flag parsing follows the teacher's flag.NewFlagSet(os.Args[0],
// flag.ContinueOnError) convention (main.go's original mode-selection logic)
// but dispatches on the four CLI forms this platform defines instead of a
// CPU-architecture flag.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func boilerPlate() {
	fmt.Println("COSMO-32 — RV32IMAC embedded platform emulator")
	fmt.Println("License: GPLv3 or later")
}

func usage(flagSet *flag.FlagSet) {
	flagSet.SetOutput(os.Stdout)
	fmt.Println("Usage:")
	fmt.Println("  cosmo32 <firmware>                                     interactive mode")
	fmt.Println("  cosmo32 --headless <firmware> [--cmd <line> | --batch] [--timeout <ms>] [--screenshot <path>]")
	fmt.Println("  cosmo32 --run-tests <dir>")
	fmt.Println("  cosmo32 --test <file>")
	flagSet.PrintDefaults()
}

func main() {
	var (
		headless       bool
		cmdLine        string
		batch          bool
		timeoutMs      uint64
		screenshotPath string
		runTestsDir    string
		testFile       string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&headless, "headless", false, "run without a window")
	flagSet.StringVar(&cmdLine, "cmd", "", "inject a single line into UART RX, then exit")
	flagSet.BoolVar(&batch, "batch", false, "read lines from stdin into UART RX, then exit")
	flagSet.Uint64Var(&timeoutMs, "timeout", 0, "run budget in milliseconds at a nominal 144MHz clock")
	flagSet.StringVar(&screenshotPath, "screenshot", "", "write a PPM framebuffer dump to this path on exit")
	flagSet.StringVar(&runTestsDir, "run-tests", "", "recursively run every *.bin test firmware under this directory")
	flagSet.StringVar(&testFile, "test", "", "run a single test firmware")

	flagSet.Usage = func() { usage(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	boilerPlate()

	switch selectMode(runTestsDir, testFile, headless) {
	case modeRunTests:
		runTestsMode(runTestsDir)
	case modeSingleTest:
		runSingleTestMode(testFile)
	case modeHeadless:
		runHeadlessMode(flagSet.Arg(0), cmdLine, batch, timeoutMs, screenshotPath)
	default:
		runInteractiveMode(flagSet.Arg(0), screenshotPath)
	}
}

type cliMode int

const (
	modeInteractive cliMode = iota
	modeHeadless
	modeRunTests
	modeSingleTest
)

// selectMode picks the CLI form to dispatch to, in the priority order the
// flags were documented in spec §6: --run-tests, then --test, then
// --headless, falling back to interactive mode.
func selectMode(runTestsDir, testFile string, headless bool) cliMode {
	switch {
	case runTestsDir != "":
		return modeRunTests
	case testFile != "":
		return modeSingleTest
	case headless:
		return modeHeadless
	default:
		return modeInteractive
	}
}

func runTestsMode(dir string) {
	passed, failed, allPass, err := RunTests(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if !allPass {
		os.Exit(1)
	}
}

func runSingleTestMode(path string) {
	m := NewEmulator("fs")
	outcome, testNum, err := m.runOneTest(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	switch outcome {
	case testPass:
		fmt.Printf("PASS %s\n", path)
	case testFail:
		fmt.Printf("FAIL %s (test %d)\n", path, testNum)
		os.Exit(1)
	case testTimeout:
		fmt.Printf("TIMEOUT %s\n", path)
		os.Exit(1)
	default:
		fmt.Printf("UNKNOWN %s\n", path)
		os.Exit(1)
	}
}

func runHeadlessMode(firmware, cmdLine string, batch bool, timeoutMs uint64, screenshotPath string) {
	if firmware == "" {
		fmt.Fprintln(os.Stderr, "Error: --headless requires a firmware path")
		os.Exit(1)
	}

	m := NewEmulator("fs")
	if err := m.LoadFirmware(firmware); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		m.cpu.Halt()
	}()

	if err := m.RunHeadless(cmdLine, batch, timeoutMs, screenshotPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runInteractiveMode opens a display window and audio output, bridges the
// host terminal's stdin/stdout to the UART for headless-less console access,
// and runs until the window is closed or the guest halts, writing a
// screenshot on exit if requested.
func runInteractiveMode(firmware, screenshotPath string) {
	if firmware == "" {
		usage(flag.NewFlagSet(os.Args[0], flag.ContinueOnError))
		os.Exit(1)
	}

	m := NewEmulator("fs")
	if err := m.LoadFirmware(firmware); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	console := NewUARTConsole(m.uart)
	console.Start()
	defer console.Stop()

	audio, err := NewAudioOutput(m.audio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host_audio: %v (continuing without sound)\n", err)
	} else {
		audio.Start()
		defer audio.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	video := NewVideoWindow(m)
	go func() {
		<-sigCh
		video.Stop()
	}()

	if err := video.Run(fmt.Sprintf("COSMO-32 — %s", firmware)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if screenshotPath != "" {
		if err := m.WriteScreenshot(screenshotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

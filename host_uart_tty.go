// host_uart_tty.go - Interactive-mode raw-terminal UART bridge for the COSMO-32 emulator

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

// UARTConsole puts the host terminal into raw mode and pumps bytes between
// it and the guest UART, grounded on the teacher's terminal_host.go
// non-blocking-read idiom but driving UART.QueueInput/SetOutputSink instead
// of a TerminalMMIO device.
package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// UARTConsole bridges the host terminal's stdin/stdout to a UART device for
// the interactive (non-headless) CLI mode.
type UARTConsole struct {
	uart *UART

	fd           int
	nonblockSet  bool
	oldTermState *term.State

	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func NewUARTConsole(uart *UART) *UARTConsole {
	return &UARTConsole{uart: uart, stopCh: make(chan struct{}), done: make(chan struct{})}
}

// Start puts stdin into raw, non-blocking mode, wires the UART's transmit
// sink to stdout, and begins a goroutine pumping stdin bytes into the RX
// queue. Call Stop to restore the terminal.
func (c *UARTConsole) Start() {
	c.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host_uart_tty: failed to set raw mode: %v\n", err)
		close(c.done)
		return
	}
	c.oldTermState = oldState

	if err := syscall.SetNonblock(c.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "host_uart_tty: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(c.fd, c.oldTermState)
		c.oldTermState = nil
		close(c.done)
		return
	}
	c.nonblockSet = true

	c.uart.SetOutputSink(func(b byte) {
		os.Stdout.Write([]byte{b})
	})

	go func() {
		defer close(c.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-c.stopCh:
				return
			default:
			}
			n, err := syscall.Read(c.fd, buf)
			if n > 0 {
				b := buf[0]
				if b == '\r' {
					b = '\n'
				}
				c.uart.QueueInput(b)
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
		}
	}()
}

// Stop terminates the stdin-reading goroutine and restores the terminal.
func (c *UARTConsole) Stop() {
	c.stopped.Do(func() {
		close(c.stopCh)
	})
	<-c.done
	if c.nonblockSet {
		_ = syscall.SetNonblock(c.fd, false)
		c.nonblockSet = false
	}
	if c.oldTermState != nil {
		_ = term.Restore(c.fd, c.oldTermState)
		c.oldTermState = nil
	}
}

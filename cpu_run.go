// cpu_run.go - Batched execution loop for the COSMO-32 emulator

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

package main

// interruptPollInterval is how often, in retired instructions, the batched
// loop re-checks the PFIC instead of doing it on every single step.
const interruptPollInterval = 4096

// Run executes instructions until cycles reaches targetCycles, the CPU
// halts, or it enters WFI. It is functionally equivalent to calling Step
// repeatedly — observable state at every suspension point (any system-class
// instruction, the batch boundary, and WFI entry) matches Step exactly; the
// only difference is the PFIC is polled every interruptPollInterval
// retirements instead of every single one.
func (c *CPU) Run(targetCycles uint64) {
	sinceLastPoll := 0
	for c.cycles < targetCycles {
		if c.halted {
			return
		}
		if sinceLastPoll == 0 {
			c.syncInterruptState()
		}
		if c.wfi {
			return
		}

		if sinceLastPoll == 0 {
			// Mirrors Step's wake-from-WFI priority: deliver a pending
			// interrupt before fetching, not after dispatching one more
			// instruction.
			if c.deliverPendingInterrupt() {
				c.cycles++
				continue
			}
		}

		word := c.bus.Read32(c.pc)
		var inst uint32
		if !isCompressed(word) {
			inst = word
			c.instLen = 4
		} else {
			inst = expandCompressed(uint16(word))
			if inst == 0 {
				c.illegalInstruction(word & 0xFFFF)
				sinceLastPoll = interruptPollInterval
				continue
			}
			c.instLen = 2
		}

		c.dispatch(inst)

		sinceLastPoll++
		if sinceLastPoll >= interruptPollInterval {
			sinceLastPoll = 0
			if c.deliverPendingInterrupt() {
				c.cycles++
			}
		}
	}
}

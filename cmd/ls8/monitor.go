// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/shibukawa/configdir"

	"github.com/ezrec/ls8/emulator"
)

// runMonitor drives the emulator from an interactive command line until
// the user quits. An interrupt stops a running 'continue' without
// leaving the monitor.
func runMonitor(emu *emulator.Emulator) (err error) {
	historyPath := ""
	cacheDir := configdir.New("ezrec", "ls8").QueryCacheFolder()
	if err := cacheDir.MkdirAll(); err == nil {
		historyPath = filepath.Join(cacheDir.Path, "history")
	}

	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:     historyPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return
	}
	defer rl.Close()

	mon := emulator.NewMonitor(emu, rl.Stdout())

	for {
		rl.SetPrompt(mon.Prompt())
		line, rerr := rl.Readline()
		if rerr == readline.ErrInterrupt {
			continue
		}
		if rerr != nil {
			break
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		quit, xerr := mon.Exec(ctx, line)
		stop()
		if xerr != nil {
			fmt.Fprintln(rl.Stderr(), xerr)
		}
		if quit {
			break
		}
	}

	return
}

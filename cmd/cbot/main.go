// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// cbot is the command line host of the CBot script engine.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/urfave/cli.v1"

	"github.com/colobot/colobot-sub025/cbot/program"
	"github.com/colobot/colobot-sub025/cbot/stdlib"
	"github.com/colobot/colobot-sub025/log"
)

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 2,
	}
	budgetFlag = cli.IntFlag{
		Name:  "budget",
		Usage: "Execution steps each program gets per tick",
		Value: program.Defaults.Budget,
	}
	maxDepthFlag = cli.IntFlag{
		Name:  "maxdepth",
		Usage: "Maximum script call depth",
		Value: program.Defaults.MaxCallDepth,
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed of the rand() script function",
	}
	dbFlag = cli.StringFlag{
		Name:  "db",
		Usage: "Snapshot database directory",
		Value: "cbot.db",
	}
	tpsFlag = cli.Float64Flag{
		Name:  "tps",
		Usage: "Host ticks per second (0 runs unpaced)",
	}
	maxTicksFlag = cli.IntFlag{
		Name:  "maxticks",
		Usage: "Stop after this many ticks (0 for no limit)",
	}
	entryFlag = cli.StringFlag{
		Name:  "entry",
		Usage: "Entry function, by name or full key",
	}
	saveFlag = cli.BoolFlag{
		Name:  "save",
		Usage: "Save a snapshot when the tick limit stops running programs",
	}
	dumpFlag = cli.BoolFlag{
		Name:  "dump",
		Usage: "Dump the frame trees of programs still running at exit",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "the CBot script engine command line interface"
	app.Version = "0.1.0"
	app.Copyright = "Copyright 2024 The ProbeChain Authors"
	app.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		budgetFlag,
		maxDepthFlag,
		seedFlag,
		dbFlag,
	}
	app.Commands = []cli.Command{
		tokensCommand,
		checkCommand,
		runCommand,
		resumeCommand,
		snapshotsCommand,
		replCommand,
		dumpConfigCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		log.Root().SetHandler(log.TerminalHandler(log.Lvl(ctx.GlobalInt(verbosityFlag.Name))))
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newGroup creates a program group with the standard library installed.
func newGroup(cfg cbotConfig) (*program.Group, error) {
	g := program.NewGroup(cfg.Engine)
	if err := stdlib.Install(g, cfg.Stdlib); err != nil {
		return nil, err
	}
	return g, nil
}

// programName derives a program name from a script file name.
func programName(file string) string {
	base := filepath.Base(file)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/time/rate"
	"gopkg.in/urfave/cli.v1"

	"github.com/colobot/colobot-sub025/cbot/program"
	"github.com/colobot/colobot-sub025/cbot/store"
	"github.com/colobot/colobot-sub025/log"
)

var (
	runFlags = []cli.Flag{tpsFlag, maxTicksFlag, saveFlag, dumpFlag}

	runCommand = cli.Command{
		Action:    run,
		Name:      "run",
		Usage:     "Compile and run scripts",
		ArgsUsage: "<file> [file...]",
		Flags:     append([]cli.Flag{entryFlag}, runFlags...),
		Category:  "SCRIPT COMMANDS",
		Description: `
The run command compiles every file into a program of one group, in order,
so later files see the public functions and classes of earlier ones. The
entry function of each program is started (the first extern function unless
--entry is given) and the programs run interleaved, one step budget per
tick, until they finish, the tick limit is reached or the command is
interrupted. With --save, programs still running are saved to the snapshot
database.`,
	}

	resumeCommand = cli.Command{
		Action:    resume,
		Name:      "resume",
		Usage:     "Resume a saved snapshot",
		ArgsUsage: "<snapshot id>",
		Flags:     runFlags,
		Category:  "SCRIPT COMMANDS",
		Description: `
The resume command loads a snapshot written by run --save or resume --save
and continues running its programs.`,
	}
)

func run(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.NewExitError("usage: run <file> [file...]", 2)
	}
	cfg := makeConfig(ctx)
	g, err := newGroup(cfg)
	if err != nil {
		return err
	}
	for _, file := range ctx.Args() {
		src, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		p, err := g.NewProgram(programName(file))
		if err != nil {
			return err
		}
		if err := p.Compile(string(src)); err != nil {
			report(os.Stderr, file, string(src), err)
			return cli.NewExitError("compilation failed", 1)
		}
		entry := ctx.String(entryFlag.Name)
		if entry == "" {
			externs := p.Externs()
			if len(externs) == 0 {
				log.Info("Program has no entry point", "program", p.Name())
				continue
			}
			entry = externs[0]
		}
		if err := p.Start(entry); err != nil {
			return fmt.Errorf("%s: %v", file, err)
		}
	}
	return drive(ctx, cfg, g)
}

func resume(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("usage: resume <snapshot id>", 2)
	}
	cfg := makeConfig(ctx)
	id, err := parseSnapshotID(ctx.Args().First())
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	g, err := newGroup(cfg)
	if err != nil {
		db.Close()
		return err
	}
	err = db.Load(id, g)
	db.Close()
	if err != nil {
		// Programs that failed to restore are stopped; run the others.
		log.Error("Snapshot partially restored", "id", id, "err", err)
	}
	log.Info("Resuming snapshot", "id", id, "running", g.Running())
	return drive(ctx, cfg, g)
}

// drive ticks the programs of g until they end, the tick limit is reached
// or the process is interrupted.
func drive(ctx *cli.Context, cfg cbotConfig, g *program.Group) error {
	cctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		select {
		case <-sigc:
			log.Info("Interrupted, stopping")
			cancel()
		case <-cctx.Done():
		}
	}()

	limit := rate.Inf
	if cfg.Run.TPS > 0 {
		limit = rate.Limit(cfg.Run.TPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	failed := 0
	sched := program.NewScheduler(g)
	sched.OnExit = func(p *program.Program, err error) {
		if err != nil {
			failed++
			report(os.Stderr, p.Name(), p.Source(), err)
			return
		}
		if res := p.Result(); res != nil {
			fmt.Printf("%s: %s\n", p.Name(), res.Text())
		}
	}
	for g.Running() > 0 {
		if cfg.Run.MaxTicks > 0 && sched.Ticks() >= uint64(cfg.Run.MaxTicks) {
			log.Info("Tick limit reached", "ticks", sched.Ticks(), "running", g.Running())
			break
		}
		if err := limiter.Wait(cctx); err != nil {
			break
		}
		sched.Tick()
	}

	if g.Running() > 0 {
		if ctx.Bool(dumpFlag.Name) {
			for _, p := range g.Programs() {
				if p.IsRunning() {
					fmt.Fprintf(os.Stderr, "%s (%s):\n", p.Name(), p.Entry().FullKey())
					spew.Fdump(os.Stderr, p.Frames())
				}
			}
		}
		if ctx.Bool(saveFlag.Name) {
			if err := saveSnapshot(cfg, g); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d programs failed", failed), 1)
	}
	return nil
}

func saveSnapshot(cfg cbotConfig, g *program.Group) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	id, err := db.Save(g)
	if err != nil {
		return err
	}
	fmt.Println("snapshot", id)
	return nil
}

func openStore(cfg cbotConfig) (*store.Store, error) {
	return store.Open(cfg.Store.Path, cfg.Store.Cache, cfg.Store.Handles)
}

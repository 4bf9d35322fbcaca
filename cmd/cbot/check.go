// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"
)

var checkCommand = cli.Command{
	Action:    check,
	Name:      "check",
	Usage:     "Compile scripts and report diagnostics",
	ArgsUsage: "<file> [file...]",
	Category:  "SCRIPT COMMANDS",
	Description: `
The check command compiles every file on its own, concurrently, and prints
a summary table followed by the diagnostics of the files that failed.`,
}

type checkResult struct {
	file    string
	src     string
	externs []string
	funcs   int
	err     error
}

func check(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.NewExitError("usage: check <file> [file...]", 2)
	}
	cfg := makeConfig(ctx)
	files := ctx.Args()
	results := make([]checkResult, len(files))

	var eg errgroup.Group
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			results[i] = checkFile(cfg, file)
			return nil
		})
	}
	eg.Wait()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Status", "Functions", "Entry points"})
	failed := 0
	for _, r := range results {
		status := "ok"
		if r.err != nil {
			status = "error"
			failed++
		}
		table.Append([]string{r.file, status, fmt.Sprint(r.funcs), strings.Join(r.externs, " ")})
	}
	table.Render()

	for _, r := range results {
		if r.err != nil {
			report(os.Stderr, r.file, r.src, r.err)
		}
	}
	if failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d of %d files failed", failed, len(files)), 1)
	}
	return nil
}

func checkFile(cfg cbotConfig, file string) checkResult {
	res := checkResult{file: file}
	src, err := os.ReadFile(file)
	if err != nil {
		res.err = err
		return res
	}
	res.src = string(src)

	g, err := newGroup(cfg)
	if err != nil {
		res.err = err
		return res
	}
	p, err := g.NewProgram(programName(file))
	if err != nil {
		res.err = err
		return res
	}
	if res.err = p.Compile(res.src); res.err == nil {
		res.funcs = len(p.Functions())
		res.externs = p.Externs()
	}
	return res
}

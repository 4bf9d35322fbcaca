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

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var snapshotsCommand = cli.Command{
	Name:     "snapshots",
	Usage:    "Manage saved snapshots",
	Category: "SNAPSHOT COMMANDS",
	Subcommands: []cli.Command{
		{
			Action: listSnapshots,
			Name:   "list",
			Usage:  "List the snapshots and their programs",
		},
		{
			Action:    deleteSnapshot,
			Name:      "delete",
			Usage:     "Delete a snapshot",
			ArgsUsage: "<snapshot id>",
		},
	},
}

func parseSnapshotID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid snapshot id %q: %v", s, err)
	}
	return id, nil
}

func listSnapshots(ctx *cli.Context) error {
	db, err := openStore(makeConfig(ctx))
	if err != nil {
		return err
	}
	defer db.Close()

	ids, err := db.Snapshots()
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Snapshot", "Programs"})
	for _, id := range ids {
		names, err := db.Programs(id)
		if err != nil {
			return err
		}
		table.Append([]string{id.String(), strings.Join(names, " ")})
	}
	table.Render()
	return nil
}

func deleteSnapshot(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("usage: snapshots delete <snapshot id>", 2)
	}
	id, err := parseSnapshotID(ctx.Args().First())
	if err != nil {
		return err
	}
	db, err := openStore(makeConfig(ctx))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Delete(id)
}

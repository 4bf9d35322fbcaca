// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/lexer"
	"github.com/colobot/colobot-sub025/cbot/token"
)

var tokensCommand = cli.Command{
	Action:    tokens,
	Name:      "tokens",
	Usage:     "Print the token stream of a script",
	ArgsUsage: "<file>",
	Category:  "SCRIPT COMMANDS",
	Description: `
The tokens command splits a script into tokens and prints them as a table.
Malformed tokens are listed with their diagnostic.`,
}

func tokens(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("usage: tokens <file>", 2)
	}
	src, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Pos", "Type", "Literal", "Value"})
	table.SetAutoWrapText(false)
	for _, tok := range lexer.Tokenize(string(src)) {
		table.Append([]string{tok.Pos.String(), tok.Type.String(), strconv.Quote(tok.Literal), tokenValue(tok)})
	}
	table.Render()
	return nil
}

func tokenValue(tok token.Token) string {
	switch tok.Type {
	case token.INT, token.CHAR:
		return strconv.FormatInt(tok.Int, 10)
	case token.FLOAT:
		return strconv.FormatFloat(tok.Float, 'g', -1, 64)
	case token.STRING:
		return strconv.Quote(tok.Str)
	case token.ILLEGAL:
		return diag.Code(tok.Err).String()
	}
	return ""
}

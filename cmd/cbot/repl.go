// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/lexer"
	"github.com/colobot/colobot-sub025/cbot/program"
	"github.com/colobot/colobot-sub025/cbot/token"
)

const (
	historyFile = ".cbot_history"
	promptMain  = "> "
	promptCont  = ". "
	replEntry   = "replMain"
)

var replCommand = cli.Command{
	Action:   repl,
	Name:     "repl",
	Usage:    "Start an interactive session",
	Category: "SCRIPT COMMANDS",
	Description: `
The repl command reads declarations and statements. Functions and classes
are kept for the rest of the session; statements run at once inside a
function of their own, so their local variables do not outlive the entry.
An expression without a trailing semicolon is printed.

Commands: :quit, :decls, :reset.`,
}

// session holds the declarations entered so far.
type session struct {
	group *program.Group
	prog  *program.Program
	decls []string
}

func repl(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	g, err := newGroup(cfg)
	if err != nil {
		return err
	}
	p, err := g.NewProgram("repl")
	if err != nil {
		return err
	}
	s := &session{group: g, prog: p}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("CBot", app.Version, "- :quit or Ctrl+D exits")
	for {
		input, ok := readInput(ln)
		if !ok {
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		ln.AppendHistory(input)
		switch input {
		case ":quit":
			return nil
		case ":decls":
			fmt.Println(strings.Join(s.decls, "\n"))
			continue
		case ":reset":
			s.decls = nil
			continue
		}
		s.eval(os.Stdout, input, cfg.Engine.Budget)
	}
}

// readInput reads lines until braces and parentheses balance.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	prompt := promptMain
	for {
		line, err := ln.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			return "", true
		}
		if err != nil {
			if err != io.EOF {
				fmt.Fprintln(os.Stderr, err)
			}
			return "", false
		}
		b.WriteString(line)
		b.WriteByte('\n')
		if balanced(b.String()) {
			return b.String(), true
		}
		prompt = promptCont
	}
}

// balanced reports whether src has no open brace or parenthesis. Tokens
// are used so brackets inside strings and comments do not count.
func balanced(src string) bool {
	depth := 0
	for _, tok := range lexer.Tokenize(src) {
		switch tok.Type {
		case token.LBRACE, token.LPAREN:
			depth++
		case token.RBRACE, token.RPAREN:
			depth--
		case token.ILLEGAL:
			if diag.Code(tok.Err) == diag.ErrUnterminatedComment {
				return false
			}
		}
	}
	return depth <= 0
}

// eval tries input as a declaration, then as statements, then as an
// expression to print.
func (s *session) eval(w io.Writer, input string, budget int) {
	decls := strings.Join(s.decls, "\n")
	if err := s.prog.Compile(decls + "\n" + input); err == nil {
		s.decls = append(s.decls, input)
		fmt.Fprintln(w, "ok")
		return
	}
	var first error
	for _, body := range []string{input, "print(" + strings.TrimSuffix(input, ";") + ");"} {
		prefix := decls + "\nextern void " + replEntry + "() {\n"
		src := prefix + body + "\n}\n"
		err := s.prog.Compile(src)
		if err == nil {
			s.exec(w, src, budget)
			return
		}
		if first == nil {
			first = shift(err, len(prefix), src)
		}
	}
	report(w, "repl", input, first)

	// Leave the declarations compiled for the next entry.
	s.prog.Compile(decls)
}

func (s *session) exec(w io.Writer, src string, budget int) {
	if err := s.prog.Start(replEntry); err != nil {
		fmt.Fprintln(w, errColor.Sprint(err))
		return
	}
	sched := program.NewScheduler(s.group)
	sched.SetBudget(budget)
	sched.OnExit = func(p *program.Program, err error) {
		if err != nil && p == s.prog {
			report(w, "repl", src, err)
		}
	}
	sched.RunAll(0)
}

// shift rebases the range of a compile error inside the wrapped source of
// an entry onto the entry text itself.
func shift(err error, offset int, src string) error {
	var d *diag.Error
	if !errors.As(err, &d) || d.Start < offset {
		return err
	}
	moved := *d
	moved.Start -= offset
	moved.End -= offset
	moved.Line -= strings.Count(src[:offset], "\n")
	return &moved
}

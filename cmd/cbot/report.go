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
	"strings"

	"github.com/fatih/color"

	"github.com/colobot/colobot-sub025/cbot/diag"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	spanColor = color.New(color.FgRed, color.Underline)
	noteColor = color.New(color.FgCyan)
)

// report prints err and, when it carries a source range, the offending
// line of src with the range highlighted.
func report(w io.Writer, file, src string, err error) {
	var d *diag.Error
	if !errors.As(err, &d) || d.Start < 0 || d.Start > len(src) {
		fmt.Fprintf(w, "%s: %s\n", file, errColor.Sprint(err))
		return
	}
	fmt.Fprintf(w, "%s:%s\n", file, errColor.Sprint(d))

	start, end := d.Start, d.End
	lineStart := strings.LastIndexByte(src[:start], '\n') + 1
	lineEnd := strings.IndexByte(src[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += start
	}
	if end > lineEnd || end < start {
		end = lineEnd
	}
	line := src[lineStart:lineEnd]
	fmt.Fprintf(w, "%s %s%s%s\n", noteColor.Sprintf("%4d |", d.Line),
		line[:start-lineStart], spanColor.Sprint(src[start:end]), src[end:lineEnd])

	pad := strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		return ' '
	}, line[:start-lineStart])
	marks := strings.Repeat("^", len([]rune(src[start:end])))
	if marks == "" {
		marks = "^"
	}
	fmt.Fprintf(w, "%s %s%s\n", noteColor.Sprint("     |"), pad, errColor.Sprint(marks))
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/colobot/colobot-sub025/cbot/program"
	"github.com/colobot/colobot-sub025/cbot/stdlib"
	"github.com/colobot/colobot-sub025/log"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[file]",
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type storeConfig struct {
	Path    string `toml:",omitempty"`
	Cache   int
	Handles int
}

type runConfig struct {
	TPS      float64 // host ticks per second, 0 for unpaced
	MaxTicks int     // 0 for no limit
}

type cbotConfig struct {
	Engine program.Config
	Stdlib stdlib.Config
	Store  storeConfig
	Run    runConfig
}

func defaultConfig() cbotConfig {
	return cbotConfig{
		Engine: program.Defaults,
		Store:  storeConfig{Path: "cbot.db", Cache: 16, Handles: 16},
	}
}

func loadConfig(file string, cfg *cbotConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the flags
// on top of it.
func makeConfig(ctx *cli.Context) cbotConfig {
	cfg := defaultConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			log.Crit("Failed to load config", "err", err)
		}
	}
	if ctx.GlobalIsSet(budgetFlag.Name) {
		cfg.Engine.Budget = ctx.GlobalInt(budgetFlag.Name)
	}
	if ctx.GlobalIsSet(maxDepthFlag.Name) {
		cfg.Engine.MaxCallDepth = ctx.GlobalInt(maxDepthFlag.Name)
	}
	if ctx.GlobalIsSet(seedFlag.Name) {
		cfg.Stdlib.Seed = ctx.GlobalInt64(seedFlag.Name)
	}
	if ctx.GlobalIsSet(dbFlag.Name) {
		cfg.Store.Path = ctx.GlobalString(dbFlag.Name)
	}
	if ctx.IsSet(tpsFlag.Name) {
		cfg.Run.TPS = ctx.Float64(tpsFlag.Name)
	}
	if ctx.IsSet(maxTicksFlag.Name) {
		cfg.Run.MaxTicks = ctx.Int(maxTicksFlag.Name)
	}
	return cfg
}

func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)
	return nil
}

// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package program

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/types"
	"github.com/colobot/colobot-sub025/cbot/value"
)

// trace records its arguments in the *[]string handed as user value.
func trace(args, _ *value.Var, user interface{}) (bool, error) {
	var parts []string
	for a := args; a != nil; a = a.Next() {
		parts = append(parts, a.Text())
	}
	out := user.(*[]string)
	*out = append(*out, strings.Join(parts, " "))
	return true, nil
}

// pause keeps the calling program suspended for n polls.
func pause(args, _ *value.Var, _ interface{}) (bool, error) {
	if args.Int() <= 0 {
		return true, nil
	}
	args.SetInt(args.Int() - 1)
	return false, nil
}

func newGroup(t *testing.T) *Group {
	t.Helper()
	g := NewGroup(Config{})
	require.NoError(t, g.Register("trace", native.Variadic(types.Void, 1), trace))
	require.NoError(t, g.Register("pause", native.Signature(types.Void, types.Int), pause))
	return g
}

// load compiles source into a new program of g and starts entry.
func load(t *testing.T, g *Group, name, source, entry string) (*Program, *[]string) {
	t.Helper()
	p, err := g.NewProgram(name)
	require.NoError(t, err)
	out := new([]string)
	p.SetUser(out)
	require.NoError(t, p.Compile(source))
	require.NoError(t, p.Start(entry))
	return p, out
}

// finish runs p with the given per-call budgets, repeating the last one
// until the program ends.
func finish(t *testing.T, p *Program, budgets ...int) error {
	t.Helper()
	for i := 0; i < 1_000_000; i++ {
		b := budgets[len(budgets)-1]
		if i < len(budgets) {
			b = budgets[i]
		}
		done, err := p.Run(b)
		if done {
			return err
		}
	}
	t.Fatal("program did not finish")
	return nil
}

const workload = `
int fib(int n) {
	if (n < 2) return n;
	return fib(n - 1) + fib(n - 2);
}

class Acc {
	int total = 0;
	string tag = "acc";
	void add(int v) { total += v; }
}

extern int main() {
	Acc acc;
	int[] seen;
	for (int i = 0; i < 8; i++) {
		int f = fib(i);
		seen[i] = f;
		acc.add(f);
		trace(i, f);
		if (i % 3 == 2) pause(2);
	}
	int k = 0;
	while (true) {
		k++;
		if (k > 4) break;
		switch (k) {
		case 1: trace("one"); break;
		case 3: trace("three");
		default: trace("other", k);
		}
	}
	try {
		int z = 0;
		trace(10 / z);
	} catch (6000) {
		trace("caught");
	} finally {
		trace("finally");
	}
	trace(acc.tag + "=" + acc.total, sizeof(seen));
	return acc.total;
}
`

func TestRunToCompletion(t *testing.T) {
	g := newGroup(t)
	p, out := load(t, g, "bot", workload, "main")
	require.NoError(t, finish(t, p, -1))

	assert.False(t, p.IsRunning())
	require.NotNil(t, p.Result())
	assert.Equal(t, int64(33), p.Result().Int())
	want := []string{
		"0 0", "1 1", "2 1", "3 2", "4 3", "5 5", "6 8", "7 13",
		"one", "other 2", "three", "other 3", "other 4",
		"caught", "finally", "acc=33 8",
	}
	if diff := cmp.Diff(want, *out); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestBudgetEquivalence(t *testing.T) {
	g := newGroup(t)
	ref, refOut := load(t, g, "ref", workload, "main")
	require.NoError(t, finish(t, ref, -1))

	for i, budgets := range [][]int{{1}, {2}, {3}, {7}, {1, 50, 2, 1000}, {Defaults.Budget}} {
		p, err := g.NewProgram(fmt.Sprintf("budget%d", i))
		require.NoError(t, err)
		out := new([]string)
		p.SetUser(out)
		require.NoError(t, p.Compile(workload))
		require.NoError(t, p.Start("main"))
		require.NoError(t, finish(t, p, budgets...))

		assert.Equal(t, ref.Result().Int(), p.Result().Int(), "budgets %v", budgets)
		if diff := cmp.Diff(*refOut, *out); diff != "" {
			t.Errorf("budgets %v: trace mismatch (-want +got):\n%s", budgets, diff)
		}
	}
}

func TestSaveRestoreMidRun(t *testing.T) {
	g := newGroup(t)
	ref, refOut := load(t, g, "ref", workload, "main")
	require.NoError(t, finish(t, ref, -1))

	// Pause at many different points and resume in a fresh program.
	for cut := 1; cut < 400; cut += 37 {
		src, srcOut := load(t, g, "src", workload, "main")
		done := false
		for i := 0; i < cut && !done; i++ {
			var err error
			done, err = src.Run(3)
			require.NoError(t, err)
		}
		if done {
			require.NoError(t, g.Delete("src"))
			continue
		}
		var buf bytes.Buffer
		require.NoError(t, src.SaveState(&buf))
		seen := append([]string(nil), *srcOut...)
		require.NoError(t, g.Delete("src"))

		dst, err := g.NewProgram("src")
		require.NoError(t, err)
		dstOut := &seen
		dst.SetUser(dstOut)
		require.NoError(t, dst.Compile(workload))
		require.NoError(t, dst.RestoreState(&buf))
		require.True(t, dst.IsRunning())
		require.NoError(t, finish(t, dst, 5))

		assert.Equal(t, ref.Result().Int(), dst.Result().Int(), "cut %d", cut)
		if diff := cmp.Diff(*refOut, *dstOut); diff != "" {
			t.Errorf("cut %d: trace mismatch (-want +got):\n%s", cut, diff)
		}
		require.NoError(t, g.Delete("src"))
	}
}

func TestRestoreRejectsForeignState(t *testing.T) {
	g := newGroup(t)
	p, _ := load(t, g, "bot", workload, "main")
	done, err := p.Run(20)
	require.NoError(t, err)
	require.False(t, done)
	var buf bytes.Buffer
	require.NoError(t, p.SaveState(&buf))
	state := buf.Bytes()

	changed, err := g.NewProgram("bot2")
	require.NoError(t, err)
	require.NoError(t, changed.Compile(workload+"\nvoid extra() {}\n"))

	tests := []struct {
		name string
		prog *Program
		data []byte
		code diag.Code
	}{
		{"bad magic", p, append([]byte("XXXX"), state[4:]...), diag.ErrStateCorrupt},
		{"truncated", p, state[:len(state)/2], diag.ErrStateCorrupt},
		{"version", p, append(append([]byte("CBST"), 0, 9), state[6:]...), diag.ErrStateVersion},
		{"other program", changed, state, diag.ErrStateMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prog.RestoreState(bytes.NewReader(tt.data))
			var d *diag.Error
			require.True(t, errors.As(err, &d), "error %v", err)
			assert.Equal(t, tt.code, d.Code)
			assert.False(t, tt.prog.IsRunning())
		})
	}

	// The good state still restores after the failed attempts.
	require.NoError(t, p.RestoreState(bytes.NewReader(state)))
	assert.True(t, p.IsRunning())
}

func TestPublicFunctions(t *testing.T) {
	g := newGroup(t)
	lib, err := g.NewProgram("lib")
	require.NoError(t, err)
	require.NoError(t, lib.Compile(`
public int twice(int x) { return 2 * x; }
int hidden(int x) { return x; }
`))

	user, out := load(t, g, "user", `extern void main() { trace(twice(21)); }`, "main")
	require.NoError(t, finish(t, user, -1))
	assert.Equal(t, []string{"42"}, *out)

	bad, err := g.NewProgram("bad")
	require.NoError(t, err)
	src := `extern void main() { trace(hidden(1)); }`
	err = bad.Compile(src)
	var d *diag.Error
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.ErrUndefFunc, d.Code)
	code, start, end := bad.Err()
	assert.Equal(t, diag.ErrUndefFunc, code)
	assert.Equal(t, "hidden", src[start:end])

	err = bad.Compile(`extern void main() { trace(twice("x")); }`)
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.ErrBadParam, d.Code)
}

func TestRuntimeErrorIsolation(t *testing.T) {
	g := newGroup(t)
	src := `extern void main() { int[] a; trace("start"); int x = a[3]; trace("unreachable"); }`
	failing, failOut := load(t, g, "failing", src, "main")
	healthy, okOut := load(t, g, "healthy", `extern void main() { for (int i = 0; i < 3; i++) trace(i); }`, "main")

	s := NewScheduler(g)
	s.SetBudget(4)
	var exits []string
	s.OnExit = func(p *Program, err error) {
		exits = append(exits, p.Name())
	}
	s.RunAll(1000)

	assert.ElementsMatch(t, []string{"failing", "healthy"}, exits)
	assert.Equal(t, []string{"start"}, *failOut)
	assert.Equal(t, []string{"0", "1", "2"}, *okOut)
	code, start, end := failing.Err()
	assert.Equal(t, diag.ErrOutOfBounds, code)
	assert.Equal(t, "a[3]", src[start:end])
	assert.Nil(t, healthy.Error())
}

func TestStackOverflow(t *testing.T) {
	g := NewGroup(Config{MaxCallDepth: 32})
	p, err := g.NewProgram("deep")
	require.NoError(t, err)
	require.NoError(t, p.Compile(`
int down(int n) { return down(n + 1); }
extern void main() { down(0); }
`))
	require.NoError(t, p.Start("main"))
	done, err := p.Run(-1)
	assert.True(t, done)
	var d *diag.Error
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.ErrStackOverflow, d.Code)
}

func TestUncaughtThrow(t *testing.T) {
	g := newGroup(t)
	p, out := load(t, g, "thrower", `
extern void main() {
	try {
		throw 10042;
	} finally {
		trace("cleanup");
	}
}`, "main")
	err := finish(t, p, 2)
	var d *diag.Error
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.Code(10042), d.Code)
	assert.Equal(t, []string{"cleanup"}, *out)
}

func TestPollingNative(t *testing.T) {
	g := newGroup(t)
	p, out := load(t, g, "waiter", `extern void main() { trace("a"); pause(3); trace("b"); }`, "main")

	runs := 0
	for {
		done, err := p.Run(-1)
		require.NoError(t, err)
		runs++
		if done {
			break
		}
	}
	assert.Equal(t, 4, runs)
	assert.Equal(t, []string{"a", "b"}, *out)
}

func TestStepAndStop(t *testing.T) {
	g := newGroup(t)
	p, out := load(t, g, "stepper", `extern void main() { trace(1); trace(2); }`, "main")

	done, err := p.Step()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, uint64(1), p.Steps())
	assert.Empty(t, *out)

	for len(*out) == 0 {
		_, err := p.Step()
		require.NoError(t, err)
	}
	p.Stop()
	assert.False(t, p.IsRunning())
	_, err = p.Continue()
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Equal(t, []string{"1"}, *out)
}

func TestStartErrors(t *testing.T) {
	g := newGroup(t)
	p, err := g.NewProgram("p")
	require.NoError(t, err)
	assert.ErrorIs(t, p.Start("main"), ErrNotCompiled)

	require.NoError(t, p.Compile(`void run(int x) {} extern void main() {}`))
	assert.ElementsMatch(t, []string{"run(int)", "main()"}, p.Functions())
	assert.Equal(t, []string{"main"}, p.Externs())

	err = p.Start("run")
	var d *diag.Error
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.ErrNoRun, d.Code)

	_, err = g.NewProgram("p")
	assert.ErrorIs(t, err, ErrDuplicateProgram)
}

func TestBoundThis(t *testing.T) {
	g := newGroup(t)
	p, err := g.NewProgram("robot")
	require.NoError(t, err)
	out := new([]string)
	p.SetUser(out)
	require.NoError(t, p.Compile(`
public class Bot {
	int energy = 5;
}
extern void Bot::main() { energy--; trace(energy); }
`))
	bot := g.Classes().Lookup("Bot")
	require.NotNil(t, bot)

	obj := value.MakeVar(types.PointerTo(bot))
	obj.SetInstance(value.NewInstance(bot))
	obj.Instance().Fields[0].SetInt(100)
	p.SetThis(obj)

	require.NoError(t, p.Start("main"))
	require.NoError(t, finish(t, p, -1))
	assert.Equal(t, []string{"99"}, *out)
	assert.Equal(t, int64(99), obj.Instance().Fields[0].Int())
}

const botSource = `
public class Bot {
	int energy = 5;
}
extern void Bot::main() {
	Bot self = this;
	pause(1);
	energy--;
	self.energy -= 10;
	trace(energy);
}
`

// newBot returns a host object of the Bot class currently registered in g.
func newBot(t *testing.T, g *Group, energy int64) *value.Var {
	t.Helper()
	bot := g.Classes().Lookup("Bot")
	require.NotNil(t, bot)
	obj := value.MakeVar(types.PointerTo(bot))
	obj.SetInstance(value.NewInstance(bot))
	obj.Instance().Fields[0].SetInt(energy)
	return obj
}

func TestRestoreKeepsBoundThis(t *testing.T) {
	g := newGroup(t)
	src, err := g.NewProgram("robot")
	require.NoError(t, err)
	require.NoError(t, src.Compile(botSource))
	saved := newBot(t, g, 100)
	src.SetThis(saved)
	require.NoError(t, src.Start("main"))
	done, err := src.Run(-1)
	require.NoError(t, err)
	require.False(t, done, "pause must suspend")

	var buf bytes.Buffer
	require.NoError(t, src.SaveState(&buf))
	require.NoError(t, g.Delete("robot"))

	dst, err := g.NewProgram("robot")
	require.NoError(t, err)
	out := new([]string)
	dst.SetUser(out)
	require.NoError(t, dst.Compile(botSource))
	host := newBot(t, g, 100)
	dst.SetThis(host)
	require.NoError(t, dst.RestoreState(&buf))

	// The host changes its object while the script is paused.
	host.Instance().Fields[0].SetInt(50)
	require.NoError(t, finish(t, dst, -1))

	assert.Equal(t, []string{"39"}, *out)
	assert.Equal(t, int64(39), host.Instance().Fields[0].Int())
	assert.Equal(t, int64(100), saved.Instance().Fields[0].Int())
}

func TestRestoreBoundStateWithoutHostObject(t *testing.T) {
	g := newGroup(t)
	src, err := g.NewProgram("robot")
	require.NoError(t, err)
	require.NoError(t, src.Compile(botSource))
	src.SetThis(newBot(t, g, 100))
	require.NoError(t, src.Start("main"))
	done, err := src.Run(-1)
	require.NoError(t, err)
	require.False(t, done)

	var buf bytes.Buffer
	require.NoError(t, src.SaveState(&buf))

	// Nothing bound on the restoring side: the entry runs on a fresh
	// zeroed instance rather than a copy of the saved object.
	dst, out := load(t, newGroup(t), "robot", botSource, "main")
	require.NoError(t, dst.RestoreState(&buf))
	require.NoError(t, finish(t, dst, -1))
	assert.Equal(t, []string{"-11"}, *out)
}

func TestRecompileWithdrawsClasses(t *testing.T) {
	g := newGroup(t)
	p, err := g.NewProgram("p")
	require.NoError(t, err)
	require.NoError(t, p.Compile(`public class Shared { int v; } class Mine { int w; }`))
	assert.NotNil(t, g.Classes().Lookup("Shared"))

	require.NoError(t, p.Compile(`extern void main() {}`))
	assert.Nil(t, g.Classes().Lookup("Shared"))
	assert.Nil(t, p.classes.Lookup("Mine"))

	require.NoError(t, g.Delete("p"))
	assert.Nil(t, g.Program("p"))
	assert.ErrorIs(t, g.Delete("p"), ErrUnknownProgram)
}

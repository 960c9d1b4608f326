package engine_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"dinodb/pkg/engine"
	"dinodb/test/utils"
)

func openTestEngine(t *testing.T) *engine.Engine {
	folder := utils.GetTempDbFolder(t)
	e, err := engine.OpenDefault(folder)
	if err != nil {
		t.Fatal("engine.OpenDefault failed:", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestReplCreateInsertSelect(t *testing.T) {
	e := openTestEngine(t)
	input, output := startRepl(t, e.Repl())

	fmt.Fprintln(input, "createTable people id id:int name:string")
	_ = getAllOutput(output)

	fmt.Fprintln(input, "begin")
	_ = getAllOutput(output)

	fmt.Fprintln(input, "insert people 1 alice")
	if got := getAllOutput(output); !strings.Contains(got, "inserted 1 row") {
		t.Fatalf("Expected insert confirmation, got %q", got)
	}

	fmt.Fprintln(input, "commit")
	_ = getAllOutput(output)

	fmt.Fprintln(input, "select people")
	got := getAllOutput(output)
	if !strings.Contains(got, "alice") {
		t.Fatalf("Expected select output to contain the inserted row, got %q", got)
	}
}

func TestReplCreateTableUsage(t *testing.T) {
	e := openTestEngine(t)
	input, output := startRepl(t, e.Repl())

	fmt.Fprintln(input, "createTable")
	got := getAllOutput(output)
	if !strings.Contains(got, "usage") {
		t.Fatalf("Expected a usage error for a malformed createTable, got %q", got)
	}
}

func TestReplCommitWithoutBeginErrors(t *testing.T) {
	e := openTestEngine(t)
	input, output := startRepl(t, e.Repl())

	fmt.Fprintln(input, "commit")
	got := getAllOutput(output)
	if !strings.Contains(got, "ERROR") {
		t.Fatalf("Expected committing with no active transaction to error, got %q", got)
	}
}

func TestReplStats(t *testing.T) {
	e := openTestEngine(t)
	input, output := startRepl(t, e.Repl())

	fmt.Fprintln(input, "createTable t id id:int")
	_ = getAllOutput(output)

	fmt.Fprintln(input, "stats")
	got := getAllOutput(output)
	if !strings.Contains(got, "stats recomputed") {
		t.Fatalf("Expected a stats confirmation, got %q", got)
	}
}

func TestReplBackupAndLogtail(t *testing.T) {
	e := openTestEngine(t)
	input, output := startRepl(t, e.Repl())

	fmt.Fprintln(input, "createTable t id id:int")
	_ = getAllOutput(output)
	fmt.Fprintln(input, "begin")
	_ = getAllOutput(output)
	fmt.Fprintln(input, "insert t 1")
	_ = getAllOutput(output)
	fmt.Fprintln(input, "commit")
	_ = getAllOutput(output)

	dest := utils.GetTempDbFolder(t)
	fmt.Fprintln(input, "backup "+dest)
	got := getAllOutput(output)
	if !strings.Contains(got, "backed up to "+dest) {
		t.Fatalf("Expected a backup confirmation, got %q", got)
	}

	fmt.Fprintln(input, "logtail "+strconv.Itoa(10))
	got = getAllOutput(output)
	if !strings.Contains(got, "commit") {
		t.Fatalf("Expected the log tail to include the commit record, got %q", got)
	}
}

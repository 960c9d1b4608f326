package engine

import (
	"fmt"
	"strconv"
	"strings"

	dbconfig "dinodb/pkg/config"
	"dinodb/pkg/dberr"
	"dinodb/pkg/repl"
	"dinodb/pkg/storage"
	"dinodb/pkg/txid"
)

// Repl builds the dinodb REPL command set bound to db: transaction
// control plus table creation, insertion, and scanning, and the stats,
// backup, and logtail administrative commands.
// Each connected client's REPLConfig address doubles as its
// transaction id, so at most one transaction runs per client.
func (e *Engine) Repl() *repl.REPL {
	r := repl.NewRepl()
	r.AddCommand("begin", e.withAbortCleanup(e.handleBegin), "begin: starts a transaction for this client")
	r.AddCommand("commit", e.withAbortCleanup(e.handleCommit), "commit: commits this client's transaction")
	r.AddCommand("abort", e.withAbortCleanup(e.handleAbort), "abort: aborts this client's transaction")
	r.AddCommand("createTable", e.withAbortCleanup(e.handleCreateTable),
		"createTable <name> <primaryKeyField> <field:int|string> ...: creates a table")
	r.AddCommand("insert", e.withAbortCleanup(e.handleInsert), "insert <table> <v1> <v2> ...: inserts one row")
	r.AddCommand("select", e.withAbortCleanup(e.handleSelect), "select <table>: prints every row of a table")
	r.AddCommand("stats", e.withAbortCleanup(e.handleStats), "stats: recomputes selectivity statistics for every table")
	r.AddCommand("backup", e.withAbortCleanup(e.handleBackup), "backup <folder>: flushes and copies the database to folder")
	r.AddCommand("logtail", e.withAbortCleanup(e.handleLogTail), "logtail <n>: prints the last n write-ahead log entries")
	return r
}

func tidOf(config *repl.REPLConfig) txid.ID {
	return txid.ID(config.GetAddr())
}

// withAbortCleanup wraps a handler so that when the wrapped operation
// reports the client's transaction was picked as a deadlock victim
// (dberr.ErrTransactionAborted), the transaction's held locks are
// released right away instead of sitting held until the client happens
// to send an explicit abort. The lock-manager error is still returned
// to the caller unchanged.
func (e *Engine) withAbortCleanup(handler repl.ReplCommand) repl.ReplCommand {
	return func(payload string, config *repl.REPLConfig) (string, error) {
		out, err := handler(payload, config)
		if dberr.IsAborted(err) {
			tid := tidOf(config)
			if e.Tx.Active(tid) {
				_ = e.Tx.Abort(tid)
			}
		}
		return out, err
	}
}

func (e *Engine) handleBegin(payload string, config *repl.REPLConfig) (string, error) {
	tid := tidOf(config)
	if err := e.Tx.Begin(tid); err != nil {
		return "", err
	}
	return fmt.Sprintf("started transaction %s", tid), nil
}

func (e *Engine) handleCommit(payload string, config *repl.REPLConfig) (string, error) {
	tid := tidOf(config)
	if err := e.Tx.Commit(tid); err != nil {
		return "", err
	}
	return "commit ok", nil
}

func (e *Engine) handleAbort(payload string, config *repl.REPLConfig) (string, error) {
	tid := tidOf(config)
	if err := e.Tx.Abort(tid); err != nil {
		return "", err
	}
	return "abort ok", nil
}

func (e *Engine) handleCreateTable(payload string, config *repl.REPLConfig) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) < 4 {
		return "", dberr.NewDb("usage: createTable <name> <primaryKeyField> <field:type> ...")
	}
	name, primKey, columns := fields[1], fields[2], fields[3:]
	infos := make([]storage.FieldInfo, 0, len(columns))
	for _, col := range columns {
		parts := strings.SplitN(col, ":", 2)
		if len(parts) != 2 {
			return "", dberr.NewDb("createTable: column must be name:type, got " + col)
		}
		switch parts[1] {
		case "int":
			infos = append(infos, storage.FieldInfo{Type: storage.IntType, Name: parts[0]})
		case "string":
			infos = append(infos, storage.FieldInfo{Type: storage.StringType, Name: parts[0], Len: dbconfig.StringFieldLength})
		default:
			return "", dberr.NewDb("createTable: unknown field type " + parts[1])
		}
	}
	desc := storage.NewTupleDesc(infos...)
	if _, err := e.CreateTable(name, desc, primKey); err != nil {
		return "", err
	}
	return "created table " + name, nil
}

func (e *Engine) handleInsert(payload string, config *repl.REPLConfig) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return "", dberr.NewDb("usage: insert <table> <v1> <v2> ...")
	}
	tableName := fields[1]
	values := fields[2:]
	table, err := e.Catalog.GetTableByName(tableName)
	if err != nil {
		return "", err
	}
	desc := table.File.TupleDesc()
	if len(values) != desc.NumFields() {
		return "", dberr.NewDb(fmt.Sprintf("insert: expected %d values, got %d", desc.NumFields(), len(values)))
	}
	vals := make([]storage.Field, len(values))
	for i, v := range values {
		switch desc.Fields[i].Type {
		case storage.IntType:
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return "", err
			}
			vals[i] = storage.IntField{Value: int32(n)}
		case storage.StringType:
			vals[i] = storage.StringField{Value: v}
		}
	}
	t, err := storage.NewTuple(desc, vals...)
	if err != nil {
		return "", err
	}
	tid := tidOf(config)
	if err := e.Buffer.InsertTuple(tid, table.File.TableID(), t); err != nil {
		return "", err
	}
	return "inserted 1 row", nil
}

func (e *Engine) handleSelect(payload string, config *repl.REPLConfig) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", dberr.NewDb("usage: select <table>")
	}
	table, err := e.Catalog.GetTableByName(fields[1])
	if err != nil {
		return "", err
	}
	tid := tidOf(config)
	scan := e.Scan(tid, table, fields[1])
	if err := scan.Open(); err != nil {
		return "", err
	}
	defer scan.Close()
	var sb strings.Builder
	for {
		has, err := scan.HasNext()
		if err != nil {
			return "", err
		}
		if !has {
			break
		}
		t, err := scan.Next()
		if err != nil {
			return "", err
		}
		sb.WriteString(t.String())
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (e *Engine) handleStats(payload string, config *repl.REPLConfig) (string, error) {
	if err := e.ComputeStats(); err != nil {
		return "", err
	}
	return "stats recomputed", nil
}

func (e *Engine) handleBackup(payload string, config *repl.REPLConfig) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", dberr.NewDb("usage: backup <folder>")
	}
	if err := e.Backup(fields[1]); err != nil {
		return "", err
	}
	return "backed up to " + fields[1], nil
}

func (e *Engine) handleLogTail(payload string, config *repl.REPLConfig) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", dberr.NewDb("usage: logtail <n>")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", err
	}
	lines, err := e.Log.Tail(n)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

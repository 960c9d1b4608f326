// Package recovery implements the write-ahead log the buffer pool
// forces before installing a committed transaction's changes, including
// a before/after-image record of every page update.
package recovery

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"

	"dinodb/pkg/storage"
	"dinodb/pkg/txid"

	"github.com/google/uuid"
	"github.com/icza/backscanner"
)

/*
   Logs come in the following forms:

     START log -- start of a transaction:
     < Tx start >

     UPDATE log -- a page modification within a transaction, carrying
     both its before- and after-images so a crash mid-transaction can
     be undone, and a committed one redone:
     < Tx, update, tableID, pageNum, beforeImageB64, afterImageB64 >

     COMMIT log -- end of a successful transaction:
     < Tx commit >

     ABORT log -- end of a rolled-back transaction:
     < Tx abort >
*/

type entry interface {
	toString() string
}

type startLog struct{ id uuid.UUID }

func (l startLog) toString() string { return fmt.Sprintf("< %s start >\n", l.id) }

type commitLog struct{ id uuid.UUID }

func (l commitLog) toString() string { return fmt.Sprintf("< %s commit >\n", l.id) }

type abortLog struct{ id uuid.UUID }

func (l abortLog) toString() string { return fmt.Sprintf("< %s abort >\n", l.id) }

type updateLog struct {
	id      uuid.UUID
	tableID int64
	pageNum int
	before  []byte
	after   []byte
}

func (l updateLog) toString() string {
	return fmt.Sprintf("< %s, update, %d, %d, %s, %s >\n",
		l.id, l.tableID, l.pageNum,
		base64.StdEncoding.EncodeToString(l.before),
		base64.StdEncoding.EncodeToString(l.after))
}

const uuidPattern = "[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}"

var (
	startExp  = regexp.MustCompile(fmt.Sprintf("< (%s) start >", uuidPattern))
	commitExp = regexp.MustCompile(fmt.Sprintf("< (%s) commit >", uuidPattern))
	abortExp  = regexp.MustCompile(fmt.Sprintf("< (%s) abort >", uuidPattern))
	updateExp = regexp.MustCompile(fmt.Sprintf(
		"< (?P<uuid>%s), update, (?P<table>\\d+), (?P<page>\\d+), (?P<before>[A-Za-z0-9+/=]+), (?P<after>[A-Za-z0-9+/=]+) >",
		uuidPattern))
)

func entryFromString(s string) (entry, error) {
	switch {
	case updateExp.MatchString(s):
		m := updateExp.FindStringSubmatch(s)
		id := uuid.MustParse(m[1])
		table, _ := strconv.ParseInt(m[2], 10, 64)
		page, _ := strconv.Atoi(m[3])
		before, err := base64.StdEncoding.DecodeString(m[4])
		if err != nil {
			return nil, err
		}
		after, err := base64.StdEncoding.DecodeString(m[5])
		if err != nil {
			return nil, err
		}
		return updateLog{id: id, tableID: table, pageNum: page, before: before, after: after}, nil
	case startExp.MatchString(s):
		return startLog{id: uuid.MustParse(startExp.FindStringSubmatch(s)[1])}, nil
	case commitExp.MatchString(s):
		return commitLog{id: uuid.MustParse(commitExp.FindStringSubmatch(s)[1])}, nil
	case abortExp.MatchString(s):
		return abortLog{id: uuid.MustParse(abortExp.FindStringSubmatch(s)[1])}, nil
	default:
		return nil, errors.New("recovery: could not parse log entry")
	}
}

// LogFile is an append-only, force-on-write log of transaction
// boundaries and page before/after images.
type LogFile struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens (creating if necessary) the log file at path.
func Open(path string) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return &LogFile{file: f}, nil
}

func (lf *LogFile) append(e entry) error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if _, err := lf.file.WriteString(e.toString()); err != nil {
		return err
	}
	return lf.file.Sync()
}

// LogStart records the start of transaction tid.
func (lf *LogFile) LogStart(tid txid.ID) error {
	return lf.append(startLog{id: uuid.UUID(tid)})
}

// LogUpdate records pid's before- and after-images as dirtied by tid.
// Forced to disk before returning, per write-ahead logging: a page's
// bytes must never reach disk before its log record does.
func (lf *LogFile) LogUpdate(tid txid.ID, pid storage.PageID, before, after []byte) error {
	return lf.append(updateLog{
		id: uuid.UUID(tid), tableID: pid.TableID, pageNum: pid.PageNum,
		before: before, after: after,
	})
}

// LogCommit records that tid committed.
func (lf *LogFile) LogCommit(tid txid.ID) error {
	return lf.append(commitLog{id: uuid.UUID(tid)})
}

// LogAbort records that tid aborted.
func (lf *LogFile) LogAbort(tid txid.ID) error {
	return lf.append(abortLog{id: uuid.UUID(tid)})
}

// Force flushes any buffered log data to disk.
func (lf *LogFile) Force() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.file.Sync()
}

// Close closes the underlying file.
func (lf *LogFile) Close() error {
	return lf.file.Close()
}

// Tail returns the textual form of the last n log entries, most recent
// first, scanning backward from the end of the file rather than
// reading it in full. Intended for REPL diagnostics on a large log.
func (lf *LogFile) Tail(n int) ([]string, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	info, err := lf.file.Stat()
	if err != nil {
		return nil, err
	}
	scanner := backscanner.New(lf.file, int(info.Size()))
	lines := make([]string, 0, n)
	for len(lines) < n {
		line, _, err := scanner.Line()
		if err != nil {
			break
		}
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Replay reads every entry in the log in file order, parsing each
// line back into its typed form. Used by offline diagnostics; the
// engine itself aborts by having the buffer pool re-read dirtied pages
// from disk and does not replay the log on startup.
func Replay(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		e, err := entryFromString(line)
		if err != nil {
			return nil, err
		}
		out = append(out, e.toString())
	}
	return out, scanner.Err()
}

// Package dummydb is an in-memory implementation of the repositories, for tests & local runs.
package dummydb

import (
	"context"
	"sync"
	"time"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/course"
	"github.com/sonalink/sonalink/core/forum"
	"github.com/sonalink/sonalink/core/material"
	"github.com/sonalink/sonalink/core/notification"
	"github.com/sonalink/sonalink/core/quiz"
	"github.com/sonalink/sonalink/core/user"
)

type pair [2]int64

// tables holds every row. Slices stored in rows are never appended to in place,
// so a shallow copy of the maps is a consistent snapshot.
type tables struct {
	seq           int64
	users         map[int64]user.User
	courses       map[int64]course.Course
	enrollments   map[pair]time.Time // {course, user}
	materials     map[int64]material.Material
	upvotes       map[pair]bool // {material, user}
	threads       map[int64]forum.Thread
	replies       map[int64]forum.Reply
	quizzes       map[int64]quiz.Quiz
	questions     map[int64]quiz.Question
	submissions   map[int64]quiz.Submission
	reminders     map[pair]bool // {quiz, user}
	notifications map[int64]notification.Notification
}

func newTables() tables {
	return tables{
		users:         make(map[int64]user.User),
		courses:       make(map[int64]course.Course),
		enrollments:   make(map[pair]time.Time),
		materials:     make(map[int64]material.Material),
		upvotes:       make(map[pair]bool),
		threads:       make(map[int64]forum.Thread),
		replies:       make(map[int64]forum.Reply),
		quizzes:       make(map[int64]quiz.Quiz),
		questions:     make(map[int64]quiz.Question),
		submissions:   make(map[int64]quiz.Submission),
		reminders:     make(map[pair]bool),
		notifications: make(map[int64]notification.Notification),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (t tables) snapshot() tables {
	return tables{
		seq:           t.seq,
		users:         copyMap(t.users),
		courses:       copyMap(t.courses),
		enrollments:   copyMap(t.enrollments),
		materials:     copyMap(t.materials),
		upvotes:       copyMap(t.upvotes),
		threads:       copyMap(t.threads),
		replies:       copyMap(t.replies),
		quizzes:       copyMap(t.quizzes),
		questions:     copyMap(t.questions),
		submissions:   copyMap(t.submissions),
		reminders:     copyMap(t.reminders),
		notifications: copyMap(t.notifications),
	}
}

// DB guards its tables with mu. Transactions, and writes made outside of one, also hold txMu
// so a rollback only ever discards the writes of its own transaction. Reads do not wait for
// txMu and may observe uncommitted rows.
type DB struct {
	mu        sync.Mutex // guards t, failures & outsideTx
	txMu      sync.Mutex
	t         tables
	outsideTx bool // the holder of mu also holds txMu

	failures map[string]error
}

func Open() *DB {
	return &DB{t: newTables(), failures: make(map[string]error)}
}

// FailOn makes the next call to the named repository method fail with err.
func (db *DB) FailOn(method string, err error) {
	db.mu.Lock()
	db.failures[method] = err
	db.mu.Unlock()
}

// lock acquires the table lock and returns the failure injected for method, if any.
func (db *DB) lock(method string) error {
	db.mu.Lock()
	if err, ok := db.failures[method]; ok {
		delete(db.failures, method)
		return err
	}
	return nil
}

// txExec is handed to the repositories by WithinTx so they know a transaction is running.
type txExec struct{ core.DBExecutor }

func inTx(exec []core.DBExecutor) bool {
	for _, e := range exec {
		if _, ok := e.(txExec); ok {
			return true
		}
	}
	return false
}

// lockWrite is lock for mutating methods; outside of a transaction it waits for the running one first.
// It is released with unlock.
func (db *DB) lockWrite(method string, exec []core.DBExecutor) error {
	if inTx(exec) {
		return db.lock(method)
	}
	db.txMu.Lock()
	err := db.lock(method)
	db.outsideTx = true
	return err
}

func (db *DB) unlock() {
	held := db.outsideTx
	db.outsideTx = false
	db.mu.Unlock()
	if held {
		db.txMu.Unlock()
	}
}

func (db *DB) nextID() int64 {
	db.t.seq++
	return db.t.seq
}

func (db *DB) author(id int64) core.Author {
	return db.t.users[id].Author()
}

// Transactor runs units of work atomically: the tables are restored when fn fails.
// Repository calls made inside fn must be given its exec, or writes deadlock.
type Transactor struct {
	db *DB
}

var _ core.Transactor = (*Transactor)(nil)

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (tx *Transactor) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx.db.txMu.Lock()
	defer tx.db.txMu.Unlock()

	tx.db.mu.Lock()
	snap := tx.db.t.snapshot()
	tx.db.mu.Unlock()

	restore := func() {
		tx.db.mu.Lock()
		tx.db.t = snap
		tx.db.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err = fn(txExec{}); err != nil {
		restore()
	}
	return err
}

package models

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

const (
	writerMaxRetries = 5
	writerRetrySleep = 200 * time.Millisecond
)

type writeReq struct {
	fn   func(tx *gorm.DB) error
	resp chan error
}

// Writer serializes all mutations behind one goroutine so the SQLite file
// sees a single writer. Each request still runs in its own transaction with
// a bounded busy-retry, which also covers external processes (admin scripts)
// touching the same file.
type Writer struct {
	db   *gorm.DB
	reqs chan writeReq
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewWriter starts the writer goroutine.
func NewWriter(db *gorm.DB) *Writer {
	w := &Writer{
		db:   db,
		reqs: make(chan writeReq, 64),
		quit: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case req := <-w.reqs:
			req.resp <- w.execute(req.fn)
		case <-w.quit:
			// drain anything already queued before exiting
			for {
				select {
				case req := <-w.reqs:
					req.resp <- w.execute(req.fn)
				default:
					return
				}
			}
		}
	}
}

// Do runs fn in a transaction on the writer goroutine and waits for the
// result. After Close it falls back to executing inline with the same
// bounded retry, so shutdown paths can still flush writes.
func (w *Writer) Do(fn func(tx *gorm.DB) error) error {
	resp := make(chan error, 1)
	select {
	case w.reqs <- writeReq{fn: fn, resp: resp}:
		return <-resp
	case <-w.quit:
		return w.execute(fn)
	}
}

func (w *Writer) execute(fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= writerMaxRetries; attempt++ {
		err = w.db.Transaction(fn)
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(writerRetrySleep)
	}
	return fmt.Errorf("write retries exhausted: %w", err)
}

// Close stops accepting new writes and waits for queued ones to finish.
func (w *Writer) Close() {
	close(w.quit)
	w.wg.Wait()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

package dayend

import (
	"context"

	"anypos-register/internal/models"
)

const DefaultHistoryPageSize = 50

// HistoryIterator walks day-end history a page at a time. Nothing is
// fetched until Next is called, a short page ends the walk, and Reset
// starts over from the original offset.
//
//	it := ledger.History(token, 0, 20)
//	for it.Next(ctx) {
//		s := it.Session()
//	}
//	if err := it.Err(); err != nil { ... }
type HistoryIterator struct {
	store    Store
	token    string
	start    int
	pageSize int

	offset int
	page   []models.DayEndSession
	pos    int
	last   bool
	cur    models.DayEndSession
	err    error
}

func newHistoryIterator(store Store, token string, skip, pageSize int) *HistoryIterator {
	if skip < 0 {
		skip = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	return &HistoryIterator{store: store, token: token, start: skip, pageSize: pageSize, offset: skip}
}

func (it *HistoryIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if it.pos >= len(it.page) {
		if it.last {
			return false
		}
		page, err := it.store.List(ctx, it.token, it.offset, it.pageSize)
		if err != nil {
			it.err = err
			return false
		}
		if len(page) > it.pageSize {
			page = page[:it.pageSize]
		}
		it.page = page
		it.pos = 0
		it.offset += len(page)
		it.last = len(page) < it.pageSize
		if len(page) == 0 {
			return false
		}
	}
	it.cur = it.page[it.pos]
	it.pos++
	return true
}

func (it *HistoryIterator) Session() models.DayEndSession {
	return it.cur
}

func (it *HistoryIterator) Err() error {
	return it.err
}

func (it *HistoryIterator) Reset() {
	it.offset = it.start
	it.page = nil
	it.pos = 0
	it.last = false
	it.cur = models.DayEndSession{}
	it.err = nil
}

// Take collects up to n sessions from the current position.
func (it *HistoryIterator) Take(ctx context.Context, n int) ([]models.DayEndSession, error) {
	out := make([]models.DayEndSession, 0, n)
	for len(out) < n && it.Next(ctx) {
		out = append(out, it.Session())
	}
	return out, it.Err()
}

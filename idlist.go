package flagcore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// errInvalidContentLength is returned by applyDelta when the response
// carried no usable Content-Length: per the differential-fetch
// contract this invalidates the whole list rather than being treated
// as a recoverable partial read.
var errInvalidContentLength = errors.New("id list delta response missing a valid Content-Length")

// IDList is one hydrated segment: a set of hashed unit IDs plus enough
// bookkeeping to apply the next differential update in place and
// detect when the server has rotated the underlying file.
type IDList struct {
	mu           sync.RWMutex
	name         string
	url          string
	fileID       string
	creationTime int64
	readBytes    int64
	ids          map[string]struct{}
}

func newIDList(name string) *IDList {
	return &IDList{name: name, ids: make(map[string]struct{})}
}

func (l *IDList) contains(hashedOrRaw string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.ids[hashedOrRaw]; ok {
		return true
	}
	_, ok := l.ids[idListHash(hashedOrRaw)]
	return ok
}

func (l *IDList) size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// applyDelta parses r line by line: a line starting with "+" adds the
// remaining text as a member, "-" removes it, anything else is
// ignored (matches the reference feed's tolerance for blank lines and
// trailing newlines). A trailing partial line with no final newline is
// discarded by the scanner's split function and its bytes are not
// counted toward readBytes.
// contentLength must be the response's Content-Length: a missing or
// non-positive value invalidates the whole list rather than being
// treated as a partial success, since readBytes can no longer be
// trusted to reflect what the server actually sent.
func (l *IDList) applyDelta(r io.Reader, contentLength int64) error {
	if contentLength <= 0 {
		return errInvalidContentLength
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var partial int64
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, bytes.TrimSuffix(data[:i], []byte("\r")), nil
		}
		if atEOF && len(data) > 0 {
			partial = int64(len(data))
			return len(data), nil, nil
		}
		return 0, nil, nil
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		switch line[0] {
		case '+':
			l.ids[strings.TrimSpace(line[1:])] = struct{}{}
		case '-':
			delete(l.ids, strings.TrimSpace(line[1:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	l.readBytes += contentLength - partial
	return nil
}

func (l *IDList) reset(fileID, url string, creationTime int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fileID = fileID
	l.url = url
	l.creationTime = creationTime
	l.readBytes = 0
	l.ids = make(map[string]struct{})
}

// syncIDLists reconciles the store's ID lists against the lookup
// endpoint: new lists are created, rotated files (fileID changed, with
// a creationTime at least as new as what's stored) are reset and
// refetched from the start, stale lookup entries (an older
// creationTime than what's already applied) are skipped outright, and
// unchanged lists are range-GET'd from readBytes onward. Per-list
// fetches run concurrently via errgroup, joined before this call
// returns so the caller only ever observes a consistent post-sync
// state. On completion, if an adapter is configured, the reconciled
// list set is persisted back to it.
func (s *Store) syncIDLists(ctx context.Context) error {
	lookup, err := s.fetcher.GetIDListLookup(ctx)
	if err != nil {
		return err
	}

	s.idListsMu.Lock()
	for name := range s.idLists {
		if _, ok := lookup[name]; !ok {
			delete(s.idLists, name)
		}
	}
	s.idListsMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)

	for name, entry := range lookup {
		name, entry := name, entry
		g.Go(func() error {
			return s.syncOneIDList(gctx, name, entry)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if s.adapter != nil {
		s.persistIDListsToAdapter(ctx)
	}
	return nil
}

func (s *Store) syncOneIDList(ctx context.Context, name string, entry idListLookupEntry) error {
	if entry.URL == "" || entry.FileID == "" {
		// not a well-formed lookup entry; ignore it this tick.
		return nil
	}

	s.idListsMu.Lock()
	list, exists := s.idLists[name]
	if !exists {
		list = newIDList(name)
		s.idLists[name] = list
	}
	s.idListsMu.Unlock()

	list.mu.RLock()
	storedFileID := list.fileID
	storedCreation := list.creationTime
	fromByte := list.readBytes
	list.mu.RUnlock()

	if entry.CreationTime < storedCreation {
		// stale lookup entry describing an older generation than the
		// one already applied; skip it this tick.
		return nil
	}

	needsReset := entry.FileID != storedFileID

	if needsReset {
		list.reset(entry.FileID, entry.URL, entry.CreationTime)
		fromByte = 0
	}

	if entry.Size <= fromByte {
		return nil
	}

	body, contentLength, err := s.fetcher.FetchIDListRange(ctx, entry.URL, fromByte)
	if err != nil {
		s.log.Warn("id list range fetch failed", "list", name, "error", err.Error())
		return nil
	}
	defer body.Close()

	if err := list.applyDelta(body, contentLength); err != nil {
		s.log.Warn("id list delta invalid, invalidating list", "list", name, "error", err.Error())
		s.idListsMu.Lock()
		delete(s.idLists, name)
		s.idListsMu.Unlock()
		s.obs.IncrementCounter("idlist.invalidated", map[string]string{"list": name})
		return nil
	}
	return nil
}

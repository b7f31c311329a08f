package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/fetch"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/metrics"
)

type slot struct {
	url   string
	entry string
	// appended is set once this slot's Loaded event added a trailing slot.
	appended bool
}

func (s slot) empty() bool { return s.url == "" }

// SlotView is a read-only view of one URL slot.
type SlotView struct {
	Index int            `json:"index"`
	URL   string         `json:"url,omitempty"`
	Entry string         `json:"entry,omitempty"`
	State *dataset.State `json:"state,omitempty"`
}

// URLChannel holds the ordered remote URL slots. Slot state is only touched
// under mu; downloads run outside it.
type URLChannel struct {
	*loader
	fetcher   fetch.Fetcher
	chunkSize int

	mu    sync.Mutex
	slots []slot
}

func newURLChannel(l *loader, f fetch.Fetcher, chunkSize int) *URLChannel {
	if chunkSize <= 0 {
		chunkSize = fetch.DefaultChunkSize
	}
	return &URLChannel{loader: l, fetcher: f, chunkSize: chunkSize, slots: []slot{{}}}
}

// Slots returns every slot with the state of its entry.
func (c *URLChannel) Slots() []SlotView {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SlotView, len(c.slots))
	for i, s := range c.slots {
		out[i] = SlotView{Index: i, URL: s.url, Entry: s.entry}
		if s.entry == "" {
			continue
		}
		if e, ok := c.reg.Get(s.entry); ok {
			st := e.State
			out[i].State = &st
		}
	}
	return out
}

// SetURL assigns url to an empty slot and creates its Pending entry. A URL
// already held by another slot is rejected without creating anything.
func (c *URLChannel) SetURL(index int, url string) (dataset.Entry, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return dataset.Entry{}, errs.Configurationf("set url", "", "%w: empty url", ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.slots) {
		return dataset.Entry{}, errs.Configurationf("set url", "", "%w: %d", ErrSlotNotFound, index)
	}
	if !c.slots[index].empty() {
		return dataset.Entry{}, errs.Configurationf("set url", c.slots[index].entry, "%w: %d", ErrSlotOccupied, index)
	}
	for _, s := range c.slots {
		if s.url == url {
			return dataset.Entry{}, errs.Configurationf("set url", s.entry, "%w: %s", errs.ErrDuplicateURL, url)
		}
	}

	name := fetch.NameFromURL(url)
	e, err := c.reg.Create(dataset.SourceRemoteURL, name, url, dataset.DefaultConfig())
	if err != nil {
		return dataset.Entry{}, err
	}
	c.slots[index] = slot{url: url, entry: name}
	return e, nil
}

// Download fetches the slot's URL: Pending, InProgress, then Loaded or
// Failed. Only a Pending slot can be downloaded. Errors and panics inside
// the fetch end as a Failed entry and never reach sibling slots.
func (c *URLChannel) Download(ctx context.Context, index int) (dataset.Entry, error) {
	url, name, err := c.begin(index)
	if err != nil {
		return dataset.Entry{}, err
	}

	payload, cause := c.fetchAndParse(ctx, url, name)
	e, err := c.finish(dataset.SourceRemoteURL, name, payload, cause)
	if err != nil {
		return dataset.Entry{}, err
	}
	if e.State.Phase == dataset.PhaseLoaded {
		c.onLoaded(name)
	}
	return e, nil
}

func (c *URLChannel) begin(index int) (url, name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.slots) {
		return "", "", errs.Configurationf("download", "", "%w: %d", ErrSlotNotFound, index)
	}
	s := c.slots[index]
	if s.empty() {
		return "", "", errs.Configurationf("download", "", "%w: %d", ErrEmptySlot, index)
	}
	e, ok := c.reg.Get(s.entry)
	if !ok {
		return "", "", errs.Configuration("download", s.entry, errs.ErrNotFound)
	}
	if e.State.Phase != dataset.PhasePending {
		return "", "", errs.Configurationf("download", s.entry, "%w: entry is %s", errs.ErrInvalidTransition, e.State.Phase)
	}
	if _, err := c.reg.Advance(s.entry, dataset.InProgress(0, -1), nil); err != nil {
		return "", "", err
	}
	return s.url, s.entry, nil
}

func (c *URLChannel) fetchAndParse(ctx context.Context, url, name string) (p *dataset.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, errs.Acquisition("download", name, fmt.Errorf("panic: %v", r))
		}
	}()

	progress := func(fetched, total int64) {
		if _, err := c.reg.Advance(name, dataset.InProgress(fetched, total), nil); err != nil {
			c.log.Debug("progress dropped", "entry", name, "err", err)
		}
	}
	data, err := fetch.Download(ctx, c.fetcher, url, c.chunkSize, progress)
	if err != nil {
		return nil, errs.Acquisition("download", name, err)
	}
	metrics.DownloadedBytesTotal.Add(float64(len(data)))
	c.log.Debug("download complete", "entry", name, "bytes", len(data))
	return c.parse(name, data)
}

// onLoaded is the one-shot trailing-slot transition fired when name reaches
// Loaded.
func (c *URLChannel) onLoaded(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last := len(c.slots) - 1
	if last < 0 || c.slots[last].entry != name {
		return
	}
	c.appendAfterLastLocked()
}

// EnsureTrailingSlot re-checks the trailing-slot condition. It appends at
// most once per loaded last slot, so repeated calls are no-ops.
func (c *URLChannel) EnsureTrailingSlot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last := len(c.slots) - 1
	if last < 0 {
		c.slots = append(c.slots, slot{})
		return true
	}
	e, ok := c.reg.Get(c.slots[last].entry)
	if !ok || e.State.Phase != dataset.PhaseLoaded {
		return false
	}
	return c.appendAfterLastLocked()
}

func (c *URLChannel) appendAfterLastLocked() bool {
	last := len(c.slots) - 1
	if c.slots[last].appended {
		return false
	}
	for _, s := range c.slots {
		if s.empty() {
			return false
		}
	}
	c.slots[last].appended = true
	c.slots = append(c.slots, slot{})
	return true
}

// forget empties the slot holding name so it can be reused.
func (c *URLChannel) forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if c.slots[i].entry == name {
			c.slots[i] = slot{}
		}
	}
}

func (c *URLChannel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = []slot{{}}
}

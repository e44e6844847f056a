// Package queue projects "what plays next" locally when the playback
// engine cannot expose its queue to the remote API.
package queue

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tessro/muffle/internal/core"
)

// DefaultMaxHistory bounds the previous-track stack.
const DefaultMaxHistory = 200

// Entry is one upcoming track. Key is unique per enqueue so the same
// track can appear twice.
type Entry struct {
	Key   string
	Track core.Track
}

// Context is the playlist or album the upcoming entries were built from.
type Context struct {
	Tracks       []core.Track
	Order        []int
	CurrentIndex int
	Shuffle      bool
}

// Projector holds the upcoming entries and the history stack.
type Projector struct {
	mu         sync.Mutex
	entries    []Entry
	history    []core.Track
	context    *Context
	dirty      bool
	maxHistory int

	shuffle  func([]int) []int
	onChange func(next *core.Track, queue []core.Track)
}

// Option configures a Projector.
type Option func(*Projector)

// WithMaxHistory bounds the history stack.
func WithMaxHistory(n int) Option {
	return func(p *Projector) {
		if n > 0 {
			p.maxHistory = n
		}
	}
}

// WithShuffler replaces the index shuffler.
func WithShuffler(fn func([]int) []int) Option {
	return func(p *Projector) {
		p.shuffle = fn
	}
}

// OnChange registers fn to receive the head and full upcoming list after
// every mutation.
func OnChange(fn func(next *core.Track, queue []core.Track)) Option {
	return func(p *Projector) {
		p.onChange = fn
	}
}

// New creates an empty projector.
func New(opts ...Option) *Projector {
	p := &Projector{
		maxHistory: DefaultMaxHistory,
		shuffle:    func(s []int) []int { return lo.Shuffle(s) },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetContext replaces everything with tracks, starting at start. The
// start track is returned and is not part of the upcoming entries; with
// shuffle the rest follow in random order. Tracks without a URI are
// dropped. ok is false when nothing is playable.
func (p *Projector) SetContext(tracks []core.Track, start int, shuffle bool) (core.Track, bool) {
	playable := lo.Filter(tracks, func(t core.Track, _ int) bool { return t.URI != "" })

	p.mu.Lock()
	if len(playable) == 0 {
		p.reset()
		p.mu.Unlock()
		p.notify()
		return core.Track{}, false
	}

	order := buildOrder(len(playable), start, shuffle, p.shuffle)
	p.entries = lo.Map(order[1:], func(idx int, _ int) Entry {
		return newEntry(playable[idx])
	})
	p.history = nil
	p.context = &Context{
		Tracks:       playable,
		Order:        order,
		CurrentIndex: order[0],
		Shuffle:      shuffle,
	}
	p.dirty = false
	current := playable[order[0]]
	p.mu.Unlock()

	p.notify()
	return current, true
}

// buildOrder returns start followed by the remaining indices, shuffled
// when requested. start is clamped into range.
func buildOrder(n, start int, shuffle bool, shuffler func([]int) []int) []int {
	start = max(0, min(n-1, start))
	rest := lo.Filter(lo.Range(n), func(i int, _ int) bool { return i != start })
	if shuffle {
		rest = shuffler(rest)
	}
	return append([]int{start}, rest...)
}

// SetSingleTrackMode drops the context for one-off playback.
func (p *Projector) SetSingleTrackMode() {
	p.mu.Lock()
	p.reset()
	p.mu.Unlock()
	p.notify()
}

// Clear empties the projector.
func (p *Projector) Clear() {
	p.SetSingleTrackMode()
}

func (p *Projector) reset() {
	p.entries = nil
	p.history = nil
	p.context = nil
	p.dirty = false
}

// Enqueue appends track. Tracks without a URI are ignored.
func (p *Projector) Enqueue(track core.Track) {
	if track.URI == "" {
		return
	}
	p.mu.Lock()
	p.entries = append(p.entries, newEntry(track))
	p.mu.Unlock()
	p.notify()
}

// Reorder moves the entry at from to position to and marks the context
// dirty. Out-of-range or no-op moves report false.
func (p *Projector) Reorder(from, to int) bool {
	p.mu.Lock()
	n := len(p.entries)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		p.mu.Unlock()
		return false
	}
	moved := p.entries[from]
	entries := append(append([]Entry{}, p.entries[:from]...), p.entries[from+1:]...)
	entries = append(entries[:to], append([]Entry{moved}, entries[to:]...)...)
	p.entries = entries
	p.dirty = true
	p.mu.Unlock()

	p.notify()
	return true
}

// ConsumeNext pops the head and pushes current onto the history. ok is
// false when nothing is queued.
func (p *Projector) ConsumeNext(current *core.Track) (core.Track, bool) {
	p.mu.Lock()
	if len(p.entries) == 0 {
		p.mu.Unlock()
		return core.Track{}, false
	}
	head := p.entries[0]
	p.entries = append([]Entry{}, p.entries[1:]...)
	if current != nil {
		p.history = append(p.history, *current)
		if len(p.history) > p.maxHistory {
			p.history = p.history[len(p.history)-p.maxHistory:]
		}
	}
	p.mu.Unlock()

	p.notify()
	return head.Track, true
}

// ConsumePrev pops the history and puts current back at the head. ok is
// false when the history is empty.
func (p *Projector) ConsumePrev(current *core.Track) (core.Track, bool) {
	p.mu.Lock()
	if len(p.history) == 0 {
		p.mu.Unlock()
		return core.Track{}, false
	}
	last := len(p.history) - 1
	prev := p.history[last]
	p.history = p.history[:last]
	if current != nil {
		p.entries = append([]Entry{newEntry(*current)}, p.entries...)
	}
	p.dirty = true
	p.mu.Unlock()

	p.notify()
	return prev, true
}

// SyncToCurrent drops every entry up to and including current, e.g. after
// the engine skipped on its own. Unknown tracks leave the queue alone.
func (p *Projector) SyncToCurrent(current *core.Track) {
	if current == nil {
		return
	}
	p.mu.Lock()
	_, idx, found := lo.FindIndexOf(p.entries, func(e Entry) bool { return e.Track.ID == current.ID })
	if !found {
		p.mu.Unlock()
		return
	}
	p.entries = append([]Entry{}, p.entries[idx+1:]...)
	p.mu.Unlock()
	p.notify()
}

// Entries returns a copy of the upcoming entries.
func (p *Projector) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry{}, p.entries...)
}

// Tracks returns the upcoming tracks.
func (p *Projector) Tracks() []core.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Map(p.entries, func(e Entry, _ int) core.Track { return e.Track })
}

// History returns a copy of the history, oldest first.
func (p *Projector) History() []core.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Track{}, p.history...)
}

// Dirty reports whether the entries no longer follow the context order.
func (p *Projector) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Context returns a copy of the current context, or nil.
func (p *Projector) Context() *Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.context == nil {
		return nil
	}
	c := *p.context
	c.Tracks = append([]core.Track{}, c.Tracks...)
	c.Order = append([]int{}, c.Order...)
	return &c
}

// Active reports whether a context or any queued entry exists.
func (p *Projector) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.context != nil || len(p.entries) > 0
}

func (p *Projector) notify() {
	if p.onChange == nil {
		return
	}
	tracks := p.Tracks()
	var next *core.Track
	if len(tracks) > 0 {
		t := tracks[0]
		next = &t
	}
	p.onChange(next, tracks)
}

func newEntry(t core.Track) Entry {
	return Entry{Key: t.ID + ":" + uuid.NewString(), Track: t}
}

package mediagroup

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Item is one photo of a Telegram album.
type Item struct {
	ChatID       int64
	UserID       int64
	MediaGroupID string
	MessageID    int
	Caption      string
	FileID       string
}

// Group is a complete album. FileIDs follow the order the user sent them, so
// the first photo is the product and the second the logo.
type Group struct {
	ChatID  int64
	UserID  int64
	Caption string
	FileIDs []string
	// Dropped counts photos past MaxItems.
	Dropped int
}

type Options struct {
	Debounce time.Duration
	// MaxItems is how many photos of an album are kept; 2 covers product and logo.
	MaxItems int
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	maxItems int
	onFlush  func(Group)
	groups   map[string]*pendingGroup
	stopped  bool
}

type pendingGroup struct {
	chatID  int64
	userID  int64
	caption string
	items   []Item
	timer   *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = 2
	}

	return &Aggregator{
		debounce: debounce,
		maxItems: maxItems,
		onFlush:  opts.OnFlush,
		groups:   make(map[string]*pendingGroup),
	}
}

// Add buffers an album photo. The album is flushed once no new photo arrived
// for the debounce window.
func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}

	key := fmt.Sprintf("%d:%s", item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{chatID: item.ChatID, userID: item.UserID}
		a.groups[key] = pg
	}
	pg.items = append(pg.items, item)
	if item.Caption != "" {
		pg.caption = item.Caption
	}

	if pg.timer != nil {
		pg.timer.Stop()
	}
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// Pending reports how many albums are still being collected.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Stop drops every pending album and ignores later items.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for key, pg := range a.groups {
		if pg.timer != nil {
			pg.timer.Stop()
		}
		delete(a.groups, key)
	}
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	onFlush := a.onFlush
	maxItems := a.maxItems
	a.mu.Unlock()

	items := pg.items
	sort.SliceStable(items, func(i, j int) bool { return items[i].MessageID < items[j].MessageID })

	group := Group{ChatID: pg.chatID, UserID: pg.userID, Caption: pg.caption}
	if len(items) > maxItems {
		group.Dropped = len(items) - maxItems
		items = items[:maxItems]
	}
	for _, it := range items {
		group.FileIDs = append(group.FileIDs, it.FileID)
	}

	if onFlush != nil {
		onFlush(group)
	}
}

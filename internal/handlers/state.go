package handlers

import (
	"sync"
	"time"
)

// field is a value the bot is waiting for the user to type or send.
type field string

const (
	fieldNone      field = ""
	fieldNarrative field = "narrative"
	fieldHeadline  field = "headline"
	fieldCTAText   field = "cta_text"
	fieldSiteURL   field = "site"
	fieldPhone     field = "phone"
	fieldRefine    field = "refine"
	fieldLogo      field = "logo"
)

const (
	menuMain   = "main"
	menuTheme  = "theme"
	menuDevice = "device"
	menuOutput = "output"
	menuCTA    = "cta"
)

// UIState is the chat-side state of the menu; the ad itself lives in the
// studio session.
type UIState struct {
	Menu      string
	Awaiting  field
	MessageID int
	UpdatedAt time.Time
}

type stateKey struct {
	ChatID int64
	UserID int64
}

type stateStore struct {
	mu sync.Mutex
	m  map[stateKey]*UIState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[stateKey]*UIState)}
}

func (s *stateStore) Get(chatID, userID int64) UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

func (s *stateStore) Update(chatID, userID int64, fn func(*UIState)) UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	if st.Menu == "" {
		st.Menu = menuMain
	}
	st.UpdatedAt = time.Now()
	return *st
}

// Reset keeps the menu message so it can still be edited.
func (s *stateStore) Reset(chatID, userID int64) UIState {
	return s.Update(chatID, userID, func(st *UIState) {
		msgID := st.MessageID
		*st = defaultState()
		st.MessageID = msgID
	})
}

func (s *stateStore) Delete(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, stateKey{ChatID: chatID, UserID: userID})
}

func (s *stateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *stateStore) getOrCreateLocked(chatID, userID int64) *UIState {
	key := stateKey{ChatID: chatID, UserID: userID}
	if st, ok := s.m[key]; ok {
		return st
	}
	st := defaultState()
	s.m[key] = &st
	return &st
}

func defaultState() UIState {
	return UIState{Menu: menuMain, UpdatedAt: time.Now()}
}

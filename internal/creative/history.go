package creative

// History is the newest-first list of generated artifacts for one product.
// It never evicts; Reset is the only way entries leave.
type History struct {
	entries []HistoryEntry
}

func (h *History) Append(entry HistoryEntry) {
	h.entries = append(h.entries, HistoryEntry{})
	copy(h.entries[1:], h.entries)
	h.entries[0] = entry
}

// At returns entry i without changing the log.
func (h *History) At(i int) (HistoryEntry, bool) {
	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, false
	}
	return h.entries[i], true
}

func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) Reset() {
	h.entries = nil
}

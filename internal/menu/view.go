package menu

// View is the menu section's render model.
type View struct {
	Loading  bool      `json:"loading"`
	Error    string    `json:"error,omitempty"`
	Empty    bool      `json:"empty"`
	Message  string    `json:"message,omitempty"`
	Sections []Section `json:"sections"`
}

// Snapshot builds the current View. Before Load has run the view reports loading.
func (l *Loader) Snapshot() View {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v := View{
		Loading:  l.loading || !l.started,
		Error:    l.errMsg,
		Sections: Partition(l.items),
	}

	switch {
	case v.Loading:
		v.Message = "Loading menu…"
	case v.Error != "":
		v.Message = "Menu failed to load: " + v.Error
	case len(l.items) == 0:
		v.Empty = true
		v.Message = "Menu is empty."
	}
	return v
}

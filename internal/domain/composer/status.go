package composer

// StatusKind tells the client how to render a status item.
type StatusKind string

const (
	KindProgress   StatusKind = "progress"
	KindAttachment StatusKind = "attachment"
	KindFailure    StatusKind = "failure"
)

// StatusItem is one row of the upload status area.
type StatusItem struct {
	ID       string     `json:"id"`
	Kind     StatusKind `json:"kind"`
	FileName string     `json:"file_name"`
	Fraction float64    `json:"fraction,omitempty"`
	Label    string     `json:"label,omitempty"`
}

// StatusArea is the ordered list of rows shown above the input.
type StatusArea struct {
	items []*StatusItem
}

func (s *StatusArea) Add(item *StatusItem) {
	s.items = append(s.items, item)
}

// Replace swaps the row with id for item in place. It reports false when the
// row is gone, e.g. after Clear.
func (s *StatusArea) Replace(id string, item *StatusItem) bool {
	for i, it := range s.items {
		if it.ID == id {
			s.items[i] = item
			return true
		}
	}
	return false
}

func (s *StatusArea) Remove(id string) (*StatusItem, bool) {
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return it, true
		}
	}
	return nil, false
}

func (s *StatusArea) Get(id string) (*StatusItem, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

func (s *StatusArea) Clear() {
	s.items = nil
}

func (s *StatusArea) Len() int {
	return len(s.items)
}

// Items returns a copy safe to hand out of the dispatch lock.
func (s *StatusArea) Items() []StatusItem {
	out := make([]StatusItem, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

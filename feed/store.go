package feed

// Store is the identity-keyed dedup store of one collection session.
// The first record put for an identity wins for the lifetime of the store.
// A Store is owned by a single session and is not safe for concurrent use.
type Store struct {
	records map[string]PostRecord
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]PostRecord)}
}

// Has reports whether id has been stored.
func (s *Store) Has(id string) bool {
	_, ok := s.records[id]
	return ok
}

// Put stores rec under id unless id is already present. It returns true
// when the record was inserted.
func (s *Store) Put(id string, rec PostRecord) bool {
	if _, ok := s.records[id]; ok {
		return false
	}
	s.records[id] = rec
	return true
}

// Len returns the number of distinct identities.
func (s *Store) Len() int { return len(s.records) }

// Values returns every stored record. Order is unspecified.
func (s *Store) Values() []PostRecord {
	out := make([]PostRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

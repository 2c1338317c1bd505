package memory

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/sitekit/viewscope/pkg/models"
)

// DumpFormat is written at the start of every dump.
const DumpFormat = "VIEWDUMP01"

// Snapshot is the serialized form of a Store.
type Snapshot struct {
	Format      string              `cbor:"format"`
	Sequences   Sequences           `cbor:"sequences"`
	Templates   []*models.Template  `cbor:"templates"`
	Pages       []*models.Page      `cbor:"pages"`
	Menus       []*models.Menu      `cbor:"menus"`
	Websites    []*models.Website   `cbor:"websites"`
	Modules     []*models.Module    `cbor:"modules"`
	ExternalIDs []models.ExternalID `cbor:"external_ids"`
}

// Snapshot copies the current state. Records are ordered by id so that two
// snapshots of the same state encode identically.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	st := s.st.clone()
	s.mu.RUnlock()

	snap := &Snapshot{Format: DumpFormat, Sequences: st.seq}
	for _, v := range st.views {
		snap.Templates = append(snap.Templates, v)
	}
	sort.Slice(snap.Templates, func(i, j int) bool { return snap.Templates[i].ID < snap.Templates[j].ID })
	for _, p := range st.pages {
		snap.Pages = append(snap.Pages, p)
	}
	sortPages(snap.Pages)
	for _, m := range st.menus {
		snap.Menus = append(snap.Menus, m)
	}
	sort.Slice(snap.Menus, func(i, j int) bool { return snap.Menus[i].ID < snap.Menus[j].ID })
	for _, w := range st.websites {
		snap.Websites = append(snap.Websites, w)
	}
	sort.Slice(snap.Websites, func(i, j int) bool { return snap.Websites[i].ID < snap.Websites[j].ID })
	for _, m := range st.modules {
		snap.Modules = append(snap.Modules, m)
	}
	sort.Slice(snap.Modules, func(i, j int) bool { return snap.Modules[i].ID < snap.Modules[j].ID })
	for _, x := range st.xmlIDs {
		snap.ExternalIDs = append(snap.ExternalIDs, x)
	}
	sort.Slice(snap.ExternalIDs, func(i, j int) bool {
		return snap.ExternalIDs[i].CompleteName() < snap.ExternalIDs[j].CompleteName()
	})
	return snap
}

// Dump writes the store as CBOR.
func (s *Store) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := (models.CborMarshaler{}).NewEncoder(bw).Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return bw.Flush()
}

// Load reads a dump produced by Dump into a new Store.
func Load(r io.Reader) (*Store, error) {
	var snap Snapshot
	if err := (models.CborUnmarshaler{}).NewDecoder(bufio.NewReader(r)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return FromSnapshot(&snap)
}

// FromSnapshot builds a Store holding the records of snap.
func FromSnapshot(snap *Snapshot) (*Store, error) {
	if snap.Format != DumpFormat {
		return nil, fmt.Errorf("unsupported dump format %q, expected %q", snap.Format, DumpFormat)
	}
	st := newState()
	st.seq = snap.Sequences
	for _, v := range snap.Templates {
		st.views[v.ID] = v.Clone()
	}
	for _, p := range snap.Pages {
		cp := *p
		st.pages[p.ID] = &cp
	}
	for _, m := range snap.Menus {
		cm := *m
		st.menus[m.ID] = &cm
	}
	for _, w := range snap.Websites {
		st.websites[w.ID] = cloneWebsite(w)
	}
	for _, m := range snap.Modules {
		cm := *m
		st.modules[m.ID] = &cm
	}
	for _, x := range snap.ExternalIDs {
		st.xmlIDs[x.CompleteName()] = x
	}
	return &Store{st: st}, nil
}

package delta

import "fmt"

// TableState is the materialized view of the log at one version: the
// live data files plus the latest metadata and transaction watermarks.
type TableState struct {
	Version  int64
	Metadata *MetadataAction
	Protocol *ProtocolAction
	Txns     map[string]int64

	files     map[string]AddAction
	fileOrder []string
}

// NewTableState returns an empty state positioned before any commit.
func NewTableState() *TableState {
	return &TableState{
		Version: -1,
		Txns:    make(map[string]int64),
		files:   make(map[string]AddAction),
	}
}

// Apply replays one commit's entries on top of the state.
func (s *TableState) Apply(version int64, entries []LogEntry) error {
	for _, entry := range entries {
		switch {
		case entry.Metadata != nil:
			s.Metadata = entry.Metadata
		case entry.Protocol != nil:
			s.Protocol = entry.Protocol
		case entry.Add != nil:
			if _, seen := s.files[entry.Add.Path]; !seen {
				s.fileOrder = append(s.fileOrder, entry.Add.Path)
			}
			s.files[entry.Add.Path] = *entry.Add
		case entry.Remove != nil:
			if _, seen := s.files[entry.Remove.Path]; seen {
				delete(s.files, entry.Remove.Path)
				for i, path := range s.fileOrder {
					if path == entry.Remove.Path {
						s.fileOrder = append(s.fileOrder[:i], s.fileOrder[i+1:]...)
						break
					}
				}
			}
		case entry.Txn != nil:
			if current, ok := s.Txns[entry.Txn.AppID]; !ok || entry.Txn.Version > current {
				s.Txns[entry.Txn.AppID] = entry.Txn.Version
			}
		}
	}
	if version <= s.Version {
		return fmt.Errorf("commit %d replayed out of order after %d", version, s.Version)
	}
	s.Version = version
	return nil
}

// Files returns the live data files in first-added order.
func (s *TableState) Files() []AddAction {
	out := make([]AddAction, 0, len(s.fileOrder))
	for _, path := range s.fileOrder {
		out = append(out, s.files[path])
	}
	return out
}

// NumFiles returns the number of live data files.
func (s *TableState) NumFiles() int {
	return len(s.files)
}

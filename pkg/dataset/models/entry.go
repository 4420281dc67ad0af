package models

// EntryKind discriminates the two kinds of dataset entry.
type EntryKind int

const (
	// KindRaw is a file or directory kept as a filesystem path.
	KindRaw EntryKind = iota
	// KindMetadata is a spreadsheet parsed into a Table.
	KindMetadata
)

func (k EntryKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EntryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entry is one member of a Dataset.
type Entry struct {
	// Kind selects which fields are meaningful.
	Kind EntryKind `json:"kind"`
	// Path is the source path of the file or directory.
	Path string `json:"path"`
	// Metadata is the parsed table (metadata entries only, may be nil).
	Metadata *Table `json:"metadata,omitempty"`
}

// NewRawEntry returns an entry referring to a file or directory by path.
func NewRawEntry(path string) Entry {
	return Entry{Kind: KindRaw, Path: path}
}

// NewMetadataEntry returns an entry holding a parsed spreadsheet.
func NewMetadataEntry(path string, table *Table) Entry {
	return Entry{Kind: KindMetadata, Path: path, Metadata: table}
}

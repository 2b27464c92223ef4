package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	// FileNoText marks a file registered by path only; spans in it cannot be
	// resolved to line/column.
	FileNoText
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and (optionally) content for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// HasText reports whether line/column information can be derived for the file.
func (f *File) HasText() bool {
	return f != nil && f.Flags&FileNoText == 0
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

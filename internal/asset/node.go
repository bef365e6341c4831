package asset

// Kind tags the two node variants.
type Kind int

// Node kinds.
const (
	KindFolder Kind = iota
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Node is the capability set shared by Folder and *File.
type Node interface {
	Kind() Kind
	// Path returns the canonical path; for files it is the extensionless stem.
	Path() CanonicalPath
	// Name returns the final path segment without extension.
	Name() string
	Exists() bool
	Parent() Folder
	// Equal compares canonical paths only, so a file and the folder of the
	// same stem are equal.
	Equal(other Node) bool
	// String returns the display path.
	String() string
}

var (
	_ Node = Folder{}
	_ Node = (*File)(nil)
)

func samePath(p CanonicalPath, other Node) bool {
	if other == nil {
		return false
	}
	if f, ok := other.(*File); ok && f == nil {
		return false
	}
	return p == other.Path()
}

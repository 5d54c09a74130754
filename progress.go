package asar

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

const (
	// StageEnumerating is reported while the packer walks the source tree.
	StageEnumerating ProgressStage = iota
	// StageHashing is reported as integrity records are computed.
	StageHashing
	// StageWriting is reported as file contents stream into the container.
	StageWriting
	// StageExtracting is reported as files materialize on disk.
	StageExtracting
)

// String returns a human-readable stage name.
func (s ProgressStage) String() string {
	switch s {
	case StageEnumerating:
		return "enumerating"
	case StageHashing:
		return "hashing"
	case StageWriting:
		return "writing"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressEvent represents a progress update during pack or extract.
type ProgressEvent struct {
	Stage     ProgressStage
	Path      string
	BytesDone uint64
	FilesDone int
}

// ProgressFunc receives progress updates. Callbacks run synchronously on
// the operation's goroutine and should return quickly.
type ProgressFunc func(ProgressEvent)

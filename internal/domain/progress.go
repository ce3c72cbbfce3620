package domain

// ProgressDelta is one incremental progress report.
// Bytes counts payload bytes received since the previous report;
// Decoded counts variants whose decode finished.
type ProgressDelta struct {
	Bytes   int64
	Decoded int
}

// ProgressTracker receives progress signals from the acquisition side.
// Register is called once per variant as soon as its size is known.
type ProgressTracker interface {
	Register(declaredByteSize int64)
	Report(delta ProgressDelta)
}

package engine

// Observer receives structured notifications during a detection run. It
// replaces ad-hoc verbosity switches: callers decide what to log or count.
// All callbacks run on the goroutine driving the aggregation stages, after
// the concurrent fetch stage has completed.
type Observer interface {
	// RecordFailed fires once per record excluded from grouping.
	RecordFailed(recordID string, err error)
	// GroupFound fires once per duplicate group, exact and near alike.
	GroupFound(kind GroupKind, size int)
	// RunCompleted fires once, after the result is fully assembled.
	RunCompleted(result *DetectionResult)
}

type noopObserver struct{}

func (noopObserver) RecordFailed(string, error)    {}
func (noopObserver) GroupFound(GroupKind, int)     {}
func (noopObserver) RunCompleted(*DetectionResult) {}

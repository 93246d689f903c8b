package store

import "time"

// Single builds a leaf job Spec.
func Single(jobType string, input []byte, dueTime time.Time) Spec {
	return Spec{Kind: KindSingle, JobType: jobType, Input: input, DueTime: dueTime}
}

// SequenceOf builds a Sequence Spec: children become ready one at a time, in
// order, each only once its predecessor is terminal (Finished or Error).
func SequenceOf(children ...Spec) Spec {
	return Spec{Kind: KindSequence, Children: children}
}

// SetOf builds a Set Spec: every child becomes ready immediately; the set is
// terminal once every child is terminal (Finished or Error).
func SetOf(children ...Spec) Spec {
	return Spec{Kind: KindSet, Children: children}
}

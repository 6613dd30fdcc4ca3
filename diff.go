package flowgraph

import (
	"fmt"
	"reflect"
	"sort"
)

// Patch op names, following the JSON-patch vocabulary
const (
	PatchOpAdd     = "add"
	PatchOpRemove  = "remove"
	PatchOpReplace = "replace"
)

// PatchOp is one entry of a state diff document
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Diff produces the patch document describing the transition from prev
// to next. Only changed fields are included; appended messages are
// emitted as a single op carrying the new suffix.
func Diff(prev, next WorkflowState) []PatchOp {
	var ops []PatchOp

	if prev.Step != next.Step {
		ops = append(ops, PatchOp{Op: PatchOpReplace, Path: "/step", Value: next.Step})
	}
	if prev.Status != next.Status {
		ops = append(ops, PatchOp{Op: PatchOpReplace, Path: "/status", Value: string(next.Status)})
	}
	if prev.CurrentNodeID != next.CurrentNodeID {
		ops = append(ops, PatchOp{Op: PatchOpReplace, Path: "/currentNodeId", Value: next.CurrentNodeID})
	}

	keys := make([]string, 0, len(next.Data))
	for k := range next.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		nextVal := next.Data[k]
		prevVal, existed := prev.Data[k]
		switch {
		case !existed:
			ops = append(ops, PatchOp{Op: PatchOpAdd, Path: "/data/" + k, Value: nextVal})
		case !reflect.DeepEqual(prevVal, nextVal):
			ops = append(ops, PatchOp{Op: PatchOpReplace, Path: "/data/" + k, Value: nextVal})
		}
	}
	removed := make([]string, 0)
	for k := range prev.Data {
		if _, ok := next.Data[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	for _, k := range removed {
		ops = append(ops, PatchOp{Op: PatchOpRemove, Path: "/data/" + k})
	}

	if len(next.Messages) > len(prev.Messages) {
		suffix := next.Messages[len(prev.Messages):]
		ops = append(ops, PatchOp{Op: PatchOpAdd, Path: "/messages", Value: suffix})
	} else if len(next.Messages) < len(prev.Messages) {
		// Messages are append-only; a shrink means the snapshots are
		// unrelated, report a full replace.
		ops = append(ops, PatchOp{Op: PatchOpReplace, Path: "/messages", Value: next.Messages})
	}

	if prev.Error != next.Error {
		op := PatchOpReplace
		if prev.Error == "" {
			op = PatchOpAdd
		}
		ops = append(ops, PatchOp{Op: op, Path: "/error", Value: next.Error})
	}

	return ops
}

// DiffSummary renders a compact one-line description of a patch
func DiffSummary(ops []PatchOp) string {
	if len(ops) == 0 {
		return "no changes"
	}
	return fmt.Sprintf("%d change(s), first %s %s", len(ops), ops[0].Op, ops[0].Path)
}

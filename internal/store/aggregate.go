package store

import (
	"errors"
	"fmt"

	"clinic-store/internal/globalconst"
)

// ErrInvalidPipeline is returned when an aggregation stage is malformed.
var ErrInvalidPipeline = errors.New("invalid aggregation pipeline")

// Pipeline is an ordered list of stages run left to right.
type Pipeline []Stage

// Stage is either a match stage (Group nil) or a group stage (Match nil).
// A zero Stage is a match stage that keeps everything.
type Stage struct {
	Match Predicate
	Group *GroupStage
}

// GroupStage partitions the working set and computes named accumulators per
// group. An empty By puts every record in a single group whose _id is Const.
type GroupStage struct {
	By     string
	Const  any
	Fields map[string]Accumulator
}

// Accumulator is one per-group computation.
type Accumulator struct {
	Op    string
	Field string
}

// MatchStage keeps only records matching pred.
func MatchStage(pred Predicate) Stage {
	return Stage{Match: pred}
}

// GroupBy groups by the value of field; an empty field groups everything together.
func GroupBy(field string, fields map[string]Accumulator) Stage {
	return Stage{Group: &GroupStage{By: field, Fields: fields}}
}

// Count adds 1 per record in the group.
func Count() Accumulator { return Accumulator{Op: globalconst.AggCount} }

// Sum adds up field across the group; missing or non-numeric values count as 0.
func Sum(field string) Accumulator { return Accumulator{Op: globalconst.AggSum, Field: field} }

// Avg is the arithmetic mean of field over every group member, missing values counting as 0.
func Avg(field string) Accumulator { return Accumulator{Op: globalconst.AggAvg, Field: field} }

// Min is the smallest numeric value of field in the group, or nil.
func Min(field string) Accumulator { return Accumulator{Op: globalconst.AggMin, Field: field} }

// Max is the largest numeric value of field in the group, or nil.
func Max(field string) Accumulator { return Accumulator{Op: globalconst.AggMax, Field: field} }

func (p Pipeline) validate() error {
	for i, stage := range p {
		if stage.Group == nil {
			continue
		}
		if stage.Match != nil {
			return fmt.Errorf("%w: stage %d is both a match and a group", ErrInvalidPipeline, i)
		}
		for name, acc := range stage.Group.Fields {
			if name == globalconst.GroupID {
				return fmt.Errorf("%w: stage %d: output field %q is reserved", ErrInvalidPipeline, i, name)
			}
			switch acc.Op {
			case globalconst.AggCount:
			case globalconst.AggSum, globalconst.AggAvg, globalconst.AggMin, globalconst.AggMax:
				if acc.Field == "" {
					return fmt.Errorf("%w: stage %d: %s accumulator %q needs a field", ErrInvalidPipeline, i, acc.Op, name)
				}
			default:
				return fmt.Errorf("%w: stage %d: unsupported accumulator %q", ErrInvalidPipeline, i, acc.Op)
			}
		}
	}
	return nil
}

// run executes the pipeline over records. The input slice is never modified.
func (p Pipeline) run(records []Record) []Record {
	working := records
	for _, stage := range p {
		if stage.Group != nil {
			working = stage.Group.apply(working)
			continue
		}
		pred := stage.Match.normalize()
		kept := make([]Record, 0, len(working))
		for _, rec := range working {
			if pred.matches(rec) {
				kept = append(kept, rec)
			}
		}
		working = kept
	}
	return working
}

// accState is the running state of one accumulator within one group.
type accState struct {
	sum     float64
	extreme float64
	seen    bool
}

type group struct {
	key   any
	count float64
	accs  map[string]*accState
}

// apply partitions records by the grouping key and folds each accumulator.
// Groups are emitted in order of first appearance.
func (g *GroupStage) apply(records []Record) []Record {
	groups := make(map[string]*group)
	var order []*group

	for _, rec := range records {
		key := normalizeValue(g.Const)
		if g.By != "" {
			key = rec[g.By]
		}
		hash := canonicalKey(key)
		grp, ok := groups[hash]
		if !ok {
			grp = &group{key: key, accs: make(map[string]*accState, len(g.Fields))}
			for name := range g.Fields {
				grp.accs[name] = &accState{}
			}
			groups[hash] = grp
			order = append(order, grp)
		}

		grp.count++
		for name, acc := range g.Fields {
			state := grp.accs[name]
			switch acc.Op {
			case globalconst.AggSum, globalconst.AggAvg:
				if f, ok := rec[acc.Field].(float64); ok {
					state.sum += f
				}
			case globalconst.AggMin:
				if f, ok := rec[acc.Field].(float64); ok && (!state.seen || f < state.extreme) {
					state.extreme, state.seen = f, true
				}
			case globalconst.AggMax:
				if f, ok := rec[acc.Field].(float64); ok && (!state.seen || f > state.extreme) {
					state.extreme, state.seen = f, true
				}
			}
		}
	}

	out := make([]Record, 0, len(order))
	for _, grp := range order {
		row := Record{globalconst.GroupID: cloneValue(grp.key)}
		for name, acc := range g.Fields {
			state := grp.accs[name]
			switch acc.Op {
			case globalconst.AggCount:
				row[name] = grp.count
			case globalconst.AggSum:
				row[name] = state.sum
			case globalconst.AggAvg:
				row[name] = state.sum / grp.count
			case globalconst.AggMin, globalconst.AggMax:
				if state.seen {
					row[name] = state.extreme
				} else {
					row[name] = nil
				}
			}
		}
		out = append(out, row)
	}
	return out
}

package store

import (
	"fmt"
	"strings"

	"clinic-store/internal/globalconst"
)

// ParsePipeline builds a Pipeline from its document form:
//
//	[{"$match": {"status": "confirmed"}},
//	 {"$group": {"_id": "$therapy", "total": {"$sum": "$price"}, "n": {"$sum": 1}}}]
//
// Group keys are "$field" or a constant (null included), which puts every
// record in one group. Accumulators are $sum (of "$field" or the constant 1),
// $count, $avg, $min and $max.
func ParsePipeline(docs []map[string]any) (Pipeline, error) {
	pipeline := make(Pipeline, 0, len(docs))
	for i, doc := range docs {
		if len(doc) != 1 {
			return nil, fmt.Errorf("%w: stage %d must have exactly one operator", ErrInvalidPipeline, i)
		}
		for op, body := range doc {
			switch op {
			case globalconst.StageMatch:
				pred, ok := body.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: stage %d: %s expects an object", ErrInvalidPipeline, i, op)
				}
				pipeline = append(pipeline, MatchStage(Predicate(pred)))
			case globalconst.StageGroup:
				groupDoc, ok := body.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: stage %d: %s expects an object", ErrInvalidPipeline, i, op)
				}
				stage, err := parseGroup(groupDoc)
				if err != nil {
					return nil, fmt.Errorf("stage %d: %w", i, err)
				}
				pipeline = append(pipeline, stage)
			default:
				return nil, fmt.Errorf("%w: stage %d: unsupported operator %q", ErrInvalidPipeline, i, op)
			}
		}
	}
	return pipeline, nil
}

func parseGroup(groupDoc map[string]any) (Stage, error) {
	key, ok := groupDoc[globalconst.GroupID]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %s requires an %q key", ErrInvalidPipeline, globalconst.StageGroup, globalconst.GroupID)
	}

	group := &GroupStage{Fields: make(map[string]Accumulator, len(groupDoc)-1)}
	if field, isRef := fieldRef(key); isRef {
		group.By = field
	} else {
		group.Const = key
	}

	for name, raw := range groupDoc {
		if name == globalconst.GroupID {
			continue
		}
		acc, err := parseAccumulator(raw)
		if err != nil {
			return Stage{}, fmt.Errorf("field %q: %w", name, err)
		}
		group.Fields[name] = acc
	}
	return Stage{Group: group}, nil
}

func parseAccumulator(raw any) (Accumulator, error) {
	expr, ok := raw.(map[string]any)
	if !ok || len(expr) != 1 {
		return Accumulator{}, fmt.Errorf("%w: accumulator must be a single-operator object", ErrInvalidPipeline)
	}
	for op, arg := range expr {
		name := strings.TrimPrefix(op, globalconst.FieldRef)
		switch name {
		case globalconst.AggCount:
			return Count(), nil
		case globalconst.AggSum:
			if field, isRef := fieldRef(arg); isRef {
				return Sum(field), nil
			}
			if f, ok := valueToFloat64(arg); ok && f == 1 {
				return Count(), nil
			}
			return Accumulator{}, fmt.Errorf("%w: $sum takes a \"$field\" or 1", ErrInvalidPipeline)
		case globalconst.AggAvg, globalconst.AggMin, globalconst.AggMax:
			field, isRef := fieldRef(arg)
			if !isRef {
				return Accumulator{}, fmt.Errorf("%w: %s takes a \"$field\"", ErrInvalidPipeline, op)
			}
			return Accumulator{Op: name, Field: field}, nil
		default:
			return Accumulator{}, fmt.Errorf("%w: unsupported accumulator %q", ErrInvalidPipeline, op)
		}
	}
	return Accumulator{}, ErrInvalidPipeline
}

// fieldRef reports whether v is a "$field" reference and returns the field name.
func fieldRef(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || len(s) < 2 || !strings.HasPrefix(s, globalconst.FieldRef) {
		return "", false
	}
	return s[1:], true
}

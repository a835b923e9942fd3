package store

import (
	"sort"
	"strings"
	"time"
)

func fieldValue(rec *Record, field string) any {
	switch field {
	case "id":
		return rec.ID
	case "seq":
		return rec.Seq
	case "createdAt":
		return rec.CreatedAt
	case "updatedAt":
		return rec.UpdatedAt
	}
	return rec.Doc[field]
}

func matches(rec *Record, filters []Filter) bool {
	for _, f := range filters {
		got := fieldValue(rec, f.Field)
		cmp, ok := compareValues(got, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEq:
			if cmp != 0 {
				return false
			}
		case OpGt:
			if cmp <= 0 {
				return false
			}
		case OpGte:
			if cmp < 0 {
				return false
			}
		case OpLt:
			if cmp >= 0 {
				return false
			}
		case OpLte:
			if cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues compares a stored value (post JSON round-trip: string, float64,
// bool, nil) with a caller-supplied one (which may also be an int or a
// time.Time). Returns ok=false for incomparable kinds.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}

	if ta, aok := toTime(a); aok {
		if tb, bok := toTime(b); bok {
			switch {
			case ta.Before(tb):
				return -1, true
			case ta.After(tb):
				return 1, true
			}
			return 0, true
		}
	}

	if fa, aok := toFloat(a); aok {
		if fb, bok := toFloat(b); bok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}

	if ba, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ba == bb:
				return 0, true
			case ba: // false sorts before true
				return 1, true
			}
			return -1, true
		}
		return 0, false
	}

	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		// Stored timestamps are RFC3339; plain strings fail the parse and
		// fall through to string comparison.
		if len(t) >= 20 && t[4] == '-' && t[10] == 'T' {
			if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func sortRecords(recs []Record, order Ordering) {
	if order.Field == "" {
		order.Field = "seq"
	}
	sort.SliceStable(recs, func(i, j int) bool {
		cmp, ok := compareValues(fieldValue(&recs[i], order.Field), fieldValue(&recs[j], order.Field))
		if ok && cmp != 0 {
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return recs[i].Seq < recs[j].Seq
	})
}

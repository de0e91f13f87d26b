package schema

// Widening ranks within the numeric family. Higher rank wins.
var numericRank = map[LogicalType]int{Bool: 1, Int64: 2, Double: 3}

// Widening ranks within the date family.
var dateRank = map[LogicalType]int{Date32: 1, Date64: 2}

// Unify computes the strictest common type of two observed column types.
//
// Equal types unify to themselves. Within the numeric family BOOL < INT64 <
// DOUBLE and within the date family DATE32 < DATE64, the wider type wins.
// Any cross-family pair (numeric vs date, or either vs a timestamp with a
// differing unit or timezone) widens to STRING. The operation is
// commutative and associative, so the order in which sampled files are
// combined cannot affect an inferred schema.
func Unify(a, b ColumnType) ColumnType {
	if a == b {
		return a
	}

	la, aIsLogical := a.(LogicalType)
	lb, bIsLogical := b.(LogicalType)
	if aIsLogical && bIsLogical {
		if ra, ok := numericRank[la]; ok {
			if rb, ok := numericRank[lb]; ok {
				if ra >= rb {
					return la
				}
				return lb
			}
		}
		if ra, ok := dateRank[la]; ok {
			if rb, ok := dateRank[lb]; ok {
				if ra >= rb {
					return la
				}
				return lb
			}
		}
	}

	// Cross-family mismatch, or timestamps/lists that are not identical.
	return String
}

// UnifyAll folds Unify over a set of observed types. A column absent from a
// given sample is represented by passing String (mirroring a null value).
// An empty set unifies to STRING.
func UnifyAll(types []ColumnType) ColumnType {
	if len(types) == 0 {
		return String
	}
	result := types[0]
	for _, t := range types[1:] {
		result = Unify(result, t)
	}
	return result
}

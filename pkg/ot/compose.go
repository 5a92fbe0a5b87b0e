package ot

// Compose produces an operation equivalent to applying a then b:
// apply(apply(s, a), b) == apply(s, Compose(a, b)). Whichever operand runs
// out of components first is treated as an implicit trailing Retain.
func Compose(a, b *Operation) (*Operation, error) {
	result := NewBuilder()

	opsA, opsB := a.ops, b.ops
	ia, ib := 0, 0
	var ca, cb Op
	var insOffset int // code points of ca already consumed, when ca is a partially-spent InsertOp

	next := func(ops []Op, i *int) Op {
		if *i < len(ops) {
			o := ops[*i]
			*i++
			return o
		}
		return nil
	}

	ca = next(opsA, &ia)
	cb = next(opsB, &ib)

	for ca != nil || cb != nil {
		if d, ok := ca.(DeleteOp); ok {
			result.Delete(d.Length())
			ca = next(opsA, &ia)
			continue
		}
		if ins, ok := cb.(InsertOp); ok {
			result.Insert(string(ins))
			cb = next(opsB, &ib)
			continue
		}

		if ca == nil {
			ca = RetainOp(cb.Length())
		}
		if cb == nil {
			cb = RetainOp(ca.Length() - insOffset)
		}

		switch av := ca.(type) {
		case RetainOp:
			switch bv := cb.(type) {
			case RetainOp:
				m := min(av.Length(), bv.Length())
				result.Retain(m)
				ca = advanceRetain(av, m, opsA, &ia, next)
				cb = advanceRetain(bv, m, opsB, &ib, next)
			case DeleteOp:
				m := min(av.Length(), bv.Length())
				result.Delete(m)
				ca = advanceRetain(av, m, opsA, &ia, next)
				cb = advanceDelete(bv, m, opsB, &ib, next)
			}

		case InsertOp:
			full := []rune(string(av))
			switch bv := cb.(type) {
			case RetainOp:
				m := min(av.Length()-insOffset, bv.Length())
				result.Insert(string(full[insOffset : insOffset+m]))
				if insOffset+m < len(full) {
					insOffset += m
				} else {
					insOffset = 0
					ca = next(opsA, &ia)
				}
				cb = advanceRetain(bv, m, opsB, &ib, next)
			case DeleteOp:
				m := min(av.Length()-insOffset, bv.Length())
				// cancellation: the deleted range covers this slice of the
				// insert, so nothing is emitted for it.
				if insOffset+m < len(full) {
					insOffset += m
				} else {
					insOffset = 0
					ca = next(opsA, &ia)
				}
				cb = advanceDelete(bv, m, opsB, &ib, next)
			}
		}
	}

	return result.Build(), nil
}

func advanceRetain(op RetainOp, consumed int, ops []Op, i *int, next func([]Op, *int) Op) Op {
	if op.Length() > consumed {
		return RetainOp(op.Length() - consumed)
	}
	return next(ops, i)
}

func advanceDelete(op DeleteOp, consumed int, ops []Op, i *int, next func([]Op, *int) Op) Op {
	if op.Length() > consumed {
		return DeleteOp(-(op.Length() - consumed))
	}
	return next(ops, i)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package saga

// Then connects a to b. The compiler rejects the call unless a's output
// type is b's input type.
//
// Then is associative: Then(Then(a, b), c) and Then(a, Then(b, c)) register
// the same stages with the same ordering.
func Then[In, Mid, Out any](a Stage[In, Mid], b Stage[Mid, Out]) Stage[In, Out] {
	return Stage[In, Out]{parts: concat(a.parts, b.parts)}
}

// Then3 connects three stages.
func Then3[A, B, C, D any](a Stage[A, B], b Stage[B, C], c Stage[C, D]) Stage[A, D] {
	return Then(Then(a, b), c)
}

// Then4 connects four stages.
func Then4[A, B, C, D, E any](a Stage[A, B], b Stage[B, C], c Stage[C, D], d Stage[D, E]) Stage[A, E] {
	return Then(Then3(a, b, c), d)
}

// Group registers siblings alongside s. Every sibling consumes the same
// input as s; s's output continues down the chain.
func Group[In, Out any](s Stage[In, Out], siblings ...Pipeline[In]) Stage[In, Out] {
	groups := make([][]*part, 0, len(siblings)+1)
	groups = append(groups, s.parts)
	for _, sib := range siblings {
		groups = append(groups, sib.parts)
	}
	return Stage[In, Out]{parts: concat(groups...)}
}

// Fanout joins pipelines that consume the same input. Each registered
// handler receives every event, in the order the pipelines are listed.
func Fanout[In any](pipelines ...Pipeline[In]) Pipeline[In] {
	groups := make([][]*part, len(pipelines))
	for i, p := range pipelines {
		groups[i] = p.parts
	}
	return Pipeline[In]{parts: concat(groups...)}
}

// Shared is an empty continuation. Values reaching it are written to T's
// channel and picked up by whatever handlers other pipelines registered
// for T; with none, they are dropped.
func Shared[T any]() Pipeline[T] {
	return Pipeline[T]{}
}

package cursor

// Transform converts one raw element. Returning keep == false skips the
// element: the cursor moves past it without ending the enumeration. Errors
// are returned to the caller of Current or Next unchanged.
type Transform[In, Out any] func(in In) (out Out, keep bool, err error)

// Identity returns the element unchanged.
func Identity[T any]() Transform[T, T] {
	return func(in T) (T, bool, error) {
		return in, true, nil
	}
}

// Map adapts a plain conversion.
func Map[In, Out any](fn func(In) Out) Transform[In, Out] {
	return func(in In) (Out, bool, error) {
		return fn(in), true, nil
	}
}

// Filter keeps the elements pred accepts.
func Filter[T any](pred func(T) bool) Transform[T, T] {
	return func(in T) (T, bool, error) {
		return in, pred(in), nil
	}
}

// Bind fixes an extra argument of fn.
func Bind[In, Out, A any](fn func(In, A) (Out, bool, error), arg A) Transform[In, Out] {
	return func(in In) (Out, bool, error) {
		return fn(in, arg)
	}
}

// Then runs next on the output of t. Skips and errors short-circuit.
func Then[In, Mid, Out any](t Transform[In, Mid], next Transform[Mid, Out]) Transform[In, Out] {
	return func(in In) (Out, bool, error) {
		var zero Out
		mid, keep, err := t(in)
		if err != nil || !keep {
			return zero, keep, err
		}
		return next(mid)
	}
}

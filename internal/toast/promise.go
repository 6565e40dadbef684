package toast

import "context"

// PromiseMessages describes the three toasts shown around an operation.
// A nil Success skips the success toast. A nil Error shows err.Error().
type PromiseMessages[T any] struct {
	Loading string
	Success func(T) string
	Error   func(error) string
}

// Text returns a message producer that ignores its argument.
func Text[T any](s string) func(T) string {
	return func(T) string { return s }
}

// PromiseWith shows a loading toast on m while op runs, then replaces it with
// a success or error toast. The value and error of op are returned unchanged.
// opts apply to every toast the helper creates.
func PromiseWith[T any](ctx context.Context, m *Manager, op func(context.Context) (T, error), msgs PromiseMessages[T], opts ...Option) (T, error) {
	if m == nil {
		panic("PromiseWith: manager cannot be nil")
	}
	if op == nil {
		panic("PromiseWith: operation cannot be nil")
	}

	loadingID := m.Add(KindLoading, msgs.Loading, opts...)
	settled := false
	defer func() {
		// op panicked; do not leave a spinner behind.
		if !settled {
			m.Remove(loadingID)
		}
	}()

	value, err := op(ctx)
	settled = true
	m.Remove(loadingID)

	if err != nil {
		description := err.Error()
		if msgs.Error != nil {
			description = msgs.Error(err)
		}
		m.Add(KindError, description, opts...)
		return value, err
	}

	if msgs.Success != nil {
		m.Add(KindSuccess, msgs.Success(value), opts...)
	}
	return value, nil
}

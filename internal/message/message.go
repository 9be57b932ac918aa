// Package message defines the opaque, type-erased payload carried by bus
// envelopes. Concrete message types are never known to the core; subscribers
// recover them with As.
package message

// Message is an opaque, thread-transferable payload. Any Go value satisfies
// it; the core never inspects the contents, only the type identity.
type Message interface{}

// As attempts to recover a concrete type T from an opaque Message. It
// mirrors the source implementation's downcast: on success it returns the
// borrowed/owned value and ok=true; on failure it returns the zero value of
// T and ok=false, a recoverable signal rather than a panic.
func As[T any](msg Message) (T, bool) {
	value, ok := msg.(T)
	return value, ok
}

// Is reports whether msg holds a concrete value of type T, without
// extracting it.
func Is[T any](msg Message) bool {
	_, ok := msg.(T)
	return ok
}

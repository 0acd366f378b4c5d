package bus

// PayloadAs extracts a typed payload from a message, accepting either the
// value or a pointer to it.
func PayloadAs[T any](payload any) (T, bool) {
	if v, ok := payload.(T); ok {
		return v, true
	}
	if v, ok := payload.(*T); ok && v != nil {
		return *v, true
	}
	var zero T
	return zero, false
}

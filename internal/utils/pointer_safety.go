package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// FirstNonEmpty returns the first pointer holding a non-empty string.
func FirstNonEmpty(values ...*string) string {
	for _, v := range values {
		if Value(v) != "" {
			return *v
		}
	}
	return ""
}

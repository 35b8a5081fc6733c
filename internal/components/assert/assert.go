package assert

import "fmt"

func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

// MinLen panics if the given byte slice is shorter than n, it is meant for key material
// handed to constructors.
func MinLen(value []byte, n int) {
	if len(value) < n {
		panic(fmt.Sprintf("expected at least %d bytes, got %d", n, len(value)))
	}
}

package internal

// PanicOnError panics if given a non-nil error.
// Use only for non-recoverable developer errors, such as a broken
// encoder configuration at init time.
func PanicOnError(err error) {
	if err != nil {
		panic(err)
	}
}

//go:build debug_brk

package memutils

// DebugEnabled reports whether the debug_brk build tag is present
const DebugEnabled = true

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_brk build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckAligned will verify that the numerical value passed in is a multiple of WordSize, and panics
// if it is not. This method no-ops unless the debug_brk build tag is present.
func DebugCheckAligned(value int, name string) {
	if value%WordSize != 0 {
		panic(name + " is not word aligned")
	}
}

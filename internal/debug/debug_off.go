//go:build nodebug

package debug

func Assert(bool, ...any)      {}
func Assertf(bool, string, ...any) {}
func AssertNoErr(error)        {}

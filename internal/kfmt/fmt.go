// Package kfmt is a minimal, allocation-free formatter safe to use before
// the heap, the scheduler, or a console module exist. It intentionally
// supports only the verbs the core actually needs (%s, %d, %x, %t) and
// never touches the reflect package: doing so would pull in
// runtime.convT2E / runtime.newobject, which need a working allocator
// that is not available during early boot or inside the panic path.
package kfmt

import "io"

const maxNumBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	earlyBuffer ringBuffer
	outputSink  io.Writer
)

// SetOutputSink redirects future Printf calls to w and flushes anything
// buffered before w became available (typically once /dev/console mounts).
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyBuffer)
	}
}

func doWrite(p []byte) {
	if outputSink != nil {
		outputSink.Write(p)
		return
	}
	earlyBuffer.Write(p)
}

// Printf writes a formatted string honoring %s, %d, %x, %t verbs and a
// leading decimal width. Unlike fmt.Printf it never allocates.
func Printf(format string, args ...interface{}) {
	argIndex := 0
	nextArg := func() (interface{}, bool) {
		if argIndex >= len(args) {
			return nil, false
		}
		a := args[argIndex]
		argIndex++
		return a, true
	}

	i := 0
	for i < len(format) {
		c := format[i]
		if c != '%' {
			doWrite([]byte{c})
			i++
			continue
		}

		i++
		if i >= len(format) {
			doWrite(errNoVerb)
			break
		}

		width := 0
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			width = width*10 + int(format[i]-'0')
			i++
		}
		if i >= len(format) {
			doWrite(errNoVerb)
			break
		}

		verb := format[i]
		i++

		if verb == '%' {
			doWrite([]byte{'%'})
			continue
		}

		arg, ok := nextArg()
		if !ok {
			doWrite(errMissingArg)
			continue
		}

		switch verb {
		case 's':
			writeString(arg, width)
		case 'd':
			writeInt(arg, 10, width, false)
		case 'x':
			writeInt(arg, 16, width, true)
		case 't':
			if b, ok := arg.(bool); ok {
				if b {
					doWrite(trueValue)
				} else {
					doWrite(falseValue)
				}
			} else {
				doWrite(errWrongArgType)
			}
		default:
			doWrite(errNoVerb)
		}
	}
}

func writeString(arg interface{}, width int) {
	var s string
	switch v := arg.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		doWrite(errWrongArgType)
		return
	}
	for pad := width - len(s); pad > 0; pad-- {
		doWrite([]byte{' '})
	}
	doWrite([]byte(s))
}

// toUint64 extracts an unsigned representation from the small set of
// integer types the kernel actually formats.
func toUint64(arg interface{}) (uint64, bool, bool) {
	switch v := arg.(type) {
	case int:
		return uint64(v), v < 0, true
	case int32:
		return uint64(v), v < 0, true
	case int64:
		return uint64(v), v < 0, true
	case uint:
		return uint64(v), false, true
	case uint8:
		return uint64(v), false, true
	case uint16:
		return uint64(v), false, true
	case uint32:
		return uint64(v), false, true
	case uint64:
		return v, false, true
	case uintptr:
		return uint64(v), false, true
	default:
		return 0, false, false
	}
}

func writeInt(arg interface{}, base int, width int, zeroPad bool) {
	val, neg, ok := toUint64(arg)
	if !ok {
		doWrite(errWrongArgType)
		return
	}
	if neg {
		val = uint64(-int64(val))
	}

	var buf [maxNumBufSize]byte
	pos := len(buf)
	if val == 0 {
		pos--
		buf[pos] = '0'
	}
	for val > 0 {
		digit := val % uint64(base)
		val /= uint64(base)
		pos--
		if digit < 10 {
			buf[pos] = byte('0' + digit)
		} else {
			buf[pos] = byte('a' + digit - 10)
		}
	}
	if neg {
		pos--
		buf[pos] = '-'
	}

	digits := buf[pos:]
	padChar := byte(' ')
	if zeroPad {
		padChar = '0'
	}
	for pad := width - len(digits); pad > 0; pad-- {
		doWrite([]byte{padChar})
	}
	doWrite(digits)
}

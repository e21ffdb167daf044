package normalize

import (
	"fmt"
	"strings"
)

// Layout converts a strftime-style format ("%Y-%m-%d", as written in
// context files) into a Go time layout. A format without any '%'
// directive is assumed to already be a Go layout and is returned unchanged.
//
// Month and day directives map to the non-padded Go forms so "6/5/2021"
// parses with "%m/%d/%Y", except when directly followed by another directive
// ("%Y%m%d"), where the zero-padded forms keep the digit runs unambiguous.
func Layout(format string) (string, error) {
	if !strings.Contains(format, "%") {
		return format, nil
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("format %q: trailing %%", format)
		}
		i++
		adjacent := i+1 < len(format) && format[i+1] == '%'
		switch format[i] {
		case 'Y':
			b.WriteString("2006")
		case 'y':
			b.WriteString("06")
		case 'm':
			if adjacent {
				b.WriteString("01")
			} else {
				b.WriteString("1")
			}
		case 'd':
			if adjacent {
				b.WriteString("02")
			} else {
				b.WriteString("2")
			}
		case 'b':
			b.WriteString("Jan")
		case 'B':
			b.WriteString("January")
		case 'H':
			b.WriteString("15")
		case 'M':
			b.WriteString("04")
		case 'S':
			b.WriteString("05")
		case '%':
			b.WriteByte('%')
		default:
			return "", fmt.Errorf("format %q: unsupported directive %%%c", format, format[i])
		}
	}
	return b.String(), nil
}

// Layouts converts a preference list, failing on the first bad entry.
func Layouts(formats []string) ([]string, error) {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		l, err := Layout(f)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

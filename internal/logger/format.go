package logger

import "strings"

// stripAnsiCodes removes CSI sequences (colours, styles) and OSC sequences
// (terminal hyperlinks) so file logs carry plain text
func stripAnsiCodes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\x1b' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '[':
			i += 2
			for i < len(s) && !isFinalByte(s[i]) {
				i++
			}
		case ']':
			i += 2
			for i < len(s) {
				if s[i] == '\x07' {
					break
				}
				if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '\\' {
					i++
					break
				}
				i++
			}
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String()
}

func isFinalByte(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

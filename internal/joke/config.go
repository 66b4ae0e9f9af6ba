package joke

import "strconv"

// ParsePort reads a TCP port from a command-line argument, falling back to
// DefaultPort when the argument is missing or out of range.
func ParsePort(args []string) int {
	if len(args) == 0 {
		return DefaultPort
	}
	p, err := strconv.Atoi(args[0])
	if err != nil || p <= 0 || p > 65535 {
		return DefaultPort
	}
	return p
}

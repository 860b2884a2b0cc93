//go:build !ksim_lightweight

package fatal

import "fmt"

// format reports the full file/line/function/message, the default build.
func format(file string, line int, function string, message string) string {
	return fmt.Sprintf("fatal error: %s (%s:%d in %s)", message, file, line, function)
}

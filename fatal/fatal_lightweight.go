//go:build ksim_lightweight

package fatal

// format drops the file/line/function/message strings entirely under the
// ksim_lightweight build tag, matching distortos's
// DISTORTOS_LIGHTWEIGHT_FATAL_ERROR_MESSAGES option.
func format(string, int, string, string) string {
	return "fatal error"
}

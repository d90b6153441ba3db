package ffmpeg

// GlobalArgs are prepended to every ffmpeg invocation: overwrite outputs,
// never read stdin, and keep stderr limited to real diagnostics.
func GlobalArgs() []string {
	return []string{"-y", "-nostdin", "-hide_banner", "-loglevel", "error"}
}

// ProbeArgs requests full stream and format metadata as JSON.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	}
}

//go:build windows

package sandbox

func deleteCommand(path string) (string, []string) {
	// rd handles directories; for files it falls through to del.
	return "cmd", []string{"/C", "if", "exist", path + "\\", "(rd", "/s", "/q", path + ")", "else", "(del", "/f", "/q", path + ")"}
}

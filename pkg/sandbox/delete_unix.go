//go:build !windows

package sandbox

func deleteCommand(path string) (string, []string) {
	return "rm", []string{"-rf", path}
}

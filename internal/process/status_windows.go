//go:build windows
// +build windows

package process

import "os"

func signalOf(*os.ProcessState) (int, bool) {
	return 0, false
}

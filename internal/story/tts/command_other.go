//go:build !unix

package tts

import "os"

// Windows has no SIGSTOP equivalent for a child process.
func pauseProcess(*os.Process) error {
	return ErrPauseUnsupported
}

func resumeProcess(*os.Process) error {
	return ErrPauseUnsupported
}

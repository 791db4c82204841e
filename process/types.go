package process

// ProcessID identifies a target process.
type ProcessID int

// ProcessState is the state letter the kernel reports in /proc/<pid>/stat.
type ProcessState string

const (
	ProcessRunning  ProcessState = "R"
	ProcessSleeping ProcessState = "S"
	ProcessWaiting  ProcessState = "D"
	ProcessStopped  ProcessState = "T"
	ProcessZombie   ProcessState = "Z"
	ProcessDead     ProcessState = "X"
)

// IsGone reports whether memory of a process in this state can no longer
// be read. Stopped and traced processes are still readable. Kernels before
// 3.14 report dead as a lower case x.
func (s ProcessState) IsGone() bool {
	switch s {
	case ProcessZombie, ProcessDead, "x":
		return true
	}
	return false
}

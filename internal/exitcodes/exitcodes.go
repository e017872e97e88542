package exitcodes

// Exit codes for dirsweep
// These codes form the operational contract with scripts and CI jobs
const (
	Success       = 0   // Completed, including runs with per-directory failures
	InvalidRoot   = 1   // Root path missing or not a directory
	InvalidConfig = 2   // Configuration file or arguments invalid
	RuntimeError  = 4   // Runtime error outside the walk
	Interrupted   = 130 // Stopped by SIGINT/SIGTERM
)

package metrics

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// SampleProcessRSS reads the current process's resident set size via
// gopsutil and updates ProcessRSSBytes. Failures are swallowed (sampling
// is best-effort observability, never a correctness concern).
func (r *Registry) SampleProcessRSS() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return
	}
	r.ProcessRSSBytes.Set(float64(info.RSS))
}

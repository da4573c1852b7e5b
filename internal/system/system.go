package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// RaiseFileLimit lifts the soft open-file limit to n (capped at the hard
// limit). The server holds many sockets and font files at once.
func RaiseFileLimit(logger *zap.Logger, n uint64) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("could not read open file limit", zap.Error(err))
		return
	}
	if rLimit.Cur >= n {
		return
	}

	rLimit.Cur = n
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("could not raise open file limit", zap.Error(err))
	} else {
		logger.Debug("open file limit raised", zap.Uint64("limit", uint64(rLimit.Cur)))
	}
}

// EnsureDirs creates the working directories if they do not exist.
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

var projectExtensions = []string{".json", ".yaml", ".yml"}

// FindLatestProject returns the most recently modified project file in dir.
func FindLatestProject(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		isProject := false
		for _, ext := range projectExtensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				isProject = true
				break
			}
		}
		if !isProject {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no project files (.json, .yaml) found in %s", dir)
	}

	return latestFile, nil
}

// Each rasterizing worker holds a few full-size canvases plus PNG buffers.
const bytesPerWorker = 256 << 20

// DefaultWorkers sizes the slide worker pool from the host: one worker per
// logical CPU, fewer when available memory cannot back them.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = 1
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
		if byMem := int(vm.Available / bytesPerWorker); byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

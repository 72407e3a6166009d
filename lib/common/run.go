package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var ConfPath string
var StartTime = time.Now()

// GetRunPath Get the currently selected configuration file directory
// For non-Windows systems, select the /etc/nps as config directory if exist, or select ./
// windows system, select the C:\Program Files\nps as config directory if exist, or select ./
func GetRunPath() string {
	var path string
	if len(os.Args) == 1 && ConfPath == "" {
		if !IsWindows() {
			dir, _ := filepath.Abs(filepath.Dir(os.Args[0]))
			return dir + "/"
		}
		return "./"
	}
	if path = GetInstallPath(); !FileExists(path) {
		return GetAppPath()
	}
	return path
}

// GetInstallPath Different systems get different installation paths
func GetInstallPath() string {
	if ConfPath != "" {
		return ConfPath
	}
	if IsWindows() {
		return `C:\Program Files\nps`
	}
	return "/etc/nps"
}

// GetAppPath Get the absolute path to the running directory
func GetAppPath() string {
	if exePath, err := os.Executable(); err == nil {
		return filepath.Dir(exePath)
	}
	if path, err := filepath.Abs(filepath.Dir(os.Args[0])); err == nil {
		return path
	}
	return os.Args[0]
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// GetLogPath interface log file path
func GetLogPath() string {
	if IsWindows() {
		return filepath.Join(GetAppPath(), "nps.log")
	}
	return "/var/log/nps.log"
}

func ResolvePath(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(GetRunPath(), path)
	}
	return path
}

func GetRunTime() string {
	totalSecs := int64(time.Since(StartTime).Seconds())
	days := totalSecs / 86400
	totalSecs %= 86400
	hours := totalSecs / 3600
	totalSecs %= 3600
	mins := totalSecs / 60
	secs := totalSecs % 60
	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

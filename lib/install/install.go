package install

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/djylb/nps-guard/lib/common"
	"github.com/djylb/nps-guard/lib/logs"
)

// SystemdScript is handed to kardianos/service as the unit template
const SystemdScript = `[Unit]
Description={{.Description}}
ConditionFileIsExecutable={{.Path|cmdEscape}}
{{range $i, $dep := .Dependencies}}
{{$dep}} {{end}}
[Service]
LimitNOFILE=65536
StartLimitInterval=5
StartLimitBurst=10
ExecStart={{.Path|cmdEscape}}{{range .Arguments}} {{.|cmd}}{{end}}
{{if .WorkingDirectory}}WorkingDirectory={{.WorkingDirectory|cmdEscape}}{{end}}
{{if .UserName}}User={{.UserName}}{{end}}
Restart=always
RestartSec=120
[Install]
WantedBy=multi-user.target
`

// InstallNps copies the config directory and the binary to the install
// path, an existing config is never overwritten. Returns the binary path.
func InstallNps(bin string) (string, error) {
	path := common.GetInstallPath()
	logs.Info("install path: %s", path)
	confDir := filepath.Join(path, "conf")
	if !common.FileExists(filepath.Join(confDir, "nps.conf")) {
		if err := CopyDir(filepath.Join(common.GetAppPath(), "conf"), confDir); err != nil {
			return "", fmt.Errorf("copy conf: %w", err)
		}
	}
	if err := os.MkdirAll(common.GetLogPath(), 0755); err != nil {
		logs.Warn("create log dir error %v", err)
	}
	src, err := os.Executable()
	if err != nil {
		return "", err
	}
	if common.IsWindows() {
		return src, nil
	}
	for _, dir := range []string{"/usr/bin", "/usr/local/bin"} {
		dest := filepath.Join(dir, bin)
		if _, err = copyFile(src, dest); err == nil {
			chMod(dest, 0755)
			logs.Info("install ok, binary at %s", dest)
			return dest, nil
		}
	}
	return "", err
}

// CopyDir copies the regular files of srcPath into destPath, creating directories as needed
func CopyDir(srcPath string, destPath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	if !srcInfo.IsDir() {
		return errors.New("srcPath is not a directory")
	}
	if err = os.MkdirAll(destPath, 0755); err != nil {
		return err
	}
	return filepath.Walk(srcPath, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}
		dest := filepath.Join(destPath, strings.TrimPrefix(path, srcPath))
		logs.Debug("copy file: %s -> %s", path, dest)
		if _, err = copyFile(path, dest); err != nil {
			return err
		}
		chMod(dest, 0644)
		return nil
	})
}

func copyFile(src, dest string) (int64, error) {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return 0, err
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}
	if srcAbs == destAbs {
		return 0, nil
	}
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer srcFile.Close()
	if err = os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	// write aside and rename, the running binary may be the destination
	tmpPath := dest + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmpFile, srcFile)
	_ = tmpFile.Close()
	if err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	}
	return n, os.Rename(tmpPath, dest)
}

func chMod(name string, mode os.FileMode) {
	if !common.IsWindows() {
		_ = os.Chmod(name, mode)
	}
}

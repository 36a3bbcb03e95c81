package daemon

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/adrg/xdg"
)

const (
	systemdUnitName = "remindbot.service"
	launchdLabel    = "com.remindbot.daemon"
)

// ServiceManager installs the daemon as a per-user system service.
type ServiceManager struct {
	executablePath string
	logPath        string
}

// NewServiceManager creates a service manager for the running binary.
func NewServiceManager(logPath string) (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	return &ServiceManager{executablePath: execPath, logPath: logPath}, nil
}

// Install installs and starts the service.
func (m *ServiceManager) Install() error {
	switch runtime.GOOS {
	case "darwin":
		return m.installLaunchd()
	case "linux":
		return m.installSystemd()
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// Uninstall stops and removes the service.
func (m *ServiceManager) Uninstall() error {
	switch runtime.GOOS {
	case "darwin":
		return m.uninstallLaunchd()
	case "linux":
		return m.uninstallSystemd()
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// IsInstalled checks if the service is installed.
func (m *ServiceManager) IsInstalled() bool {
	var path string
	switch runtime.GOOS {
	case "darwin":
		path = launchdPath()
	case "linux":
		path = systemdPath()
	default:
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Type=notify pairs with the READY=1 the daemon sends once running.
var systemdUnit = template.Must(template.New("unit").Parse(`[Unit]
Description=remindbot reminder daemon
After=network-online.target

[Service]
Type=notify
ExecStart={{.ExecutablePath}} daemon start --foreground
Restart=on-failure
RestartSec=5
TimeoutStopSec=15
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}
Environment="HOME={{.HomeDirectory}}"
Environment="XDG_CONFIG_HOME={{.ConfigHome}}"
Environment="XDG_DATA_HOME={{.DataHome}}"
Environment="XDG_STATE_HOME={{.StateHome}}"

[Install]
WantedBy=default.target
`))

var launchdPlist = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>daemon</string>
        <string>start</string>
        <string>--foreground</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
</dict>
</plist>
`))

type unitData struct {
	Label          string
	ExecutablePath string
	LogPath        string
	HomeDirectory  string
	ConfigHome     string
	DataHome       string
	StateHome      string
}

func (m *ServiceManager) data() unitData {
	return unitData{
		Label:          launchdLabel,
		ExecutablePath: m.executablePath,
		LogPath:        m.logPath,
		HomeDirectory:  os.Getenv("HOME"),
		ConfigHome:     xdg.ConfigHome,
		DataHome:       xdg.DataHome,
		StateHome:      xdg.StateHome,
	}
}

// RenderSystemdUnit writes the systemd user unit.
func (m *ServiceManager) RenderSystemdUnit(w io.Writer) error {
	return systemdUnit.Execute(w, m.data())
}

// RenderLaunchdPlist writes the launchd agent plist.
func (m *ServiceManager) RenderLaunchdPlist(w io.Writer) error {
	return launchdPlist.Execute(w, m.data())
}

func systemdPath() string {
	return filepath.Join(xdg.ConfigHome, "systemd", "user", systemdUnitName)
}

func launchdPath() string {
	return filepath.Join(os.Getenv("HOME"), "Library", "LaunchAgents", launchdLabel+".plist")
}

func writeRendered(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create service directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create service file: %w", err)
	}
	defer file.Close()
	if err := render(file); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}
	return nil
}

func run(name string, args ...string) error {
	if output, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, output)
	}
	return nil
}

func (m *ServiceManager) installSystemd() error {
	if err := writeRendered(systemdPath(), m.RenderSystemdUnit); err != nil {
		return err
	}
	if err := run("systemctl", "--user", "daemon-reload"); err != nil {
		return err
	}
	return run("systemctl", "--user", "enable", "--now", systemdUnitName)
}

func (m *ServiceManager) uninstallSystemd() error {
	_ = run("systemctl", "--user", "disable", "--now", systemdUnitName)
	if err := os.Remove(systemdPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	_ = run("systemctl", "--user", "daemon-reload")
	return nil
}

func (m *ServiceManager) installLaunchd() error {
	if err := writeRendered(launchdPath(), m.RenderLaunchdPlist); err != nil {
		return err
	}
	return run("launchctl", "load", launchdPath())
}

func (m *ServiceManager) uninstallLaunchd() error {
	_ = run("launchctl", "unload", launchdPath())
	if err := os.Remove(launchdPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist file: %w", err)
	}
	return nil
}

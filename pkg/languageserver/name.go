package languageserver

import (
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
)

// processNameFor maps an OS/architecture pair to the language server
// binary name shipped for it. Each platform gets a distinct binary.
func processNameFor(goos, goarch string) (string, error) {
	switch goos {
	case "windows":
		return "language_server_windows_x64.exe", nil
	case "darwin":
		if goarch == "arm64" {
			return "language_server_macos_arm", nil
		}
		return "language_server_macos", nil
	case "linux":
		if goarch == "arm64" {
			return "language_server_linux_arm", nil
		}
		return "language_server_linux_x64", nil
	}
	return "", errors.NewPlatformError("unsupported platform", nil).WithContext("os", goos)
}

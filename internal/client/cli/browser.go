package cli

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser открывает адрес в браузере по умолчанию и не ждет его закрытия
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	// процесс браузера не ждем, но и зомби не оставляем
	go func() { _ = cmd.Wait() }()
	return nil
}

package tab

import (
	"fmt"
	"os"
	"strings"
)

// Environment is the process-wide state a tab captures and restores.
type Environment interface {
	Environ() map[string]string
	Getwd() (string, error)
	Replace(env map[string]string) error
	Chdir(dir string) error
}

// OS is the Environment of the running process.
type OS struct{}

// Environ returns the process environment as a map.
func (OS) Environ() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Getwd returns the process working directory.
func (OS) Getwd() (string, error) { return os.Getwd() }

// Replace makes env the complete process environment.
func (OS) Replace(env map[string]string) error {
	os.Clearenv()
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to restore %s: %w", k, err)
		}
	}
	return nil
}

// Chdir changes the process working directory.
func (OS) Chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("failed to change directory: %w", err)
	}
	return nil
}

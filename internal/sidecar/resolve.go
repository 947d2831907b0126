package sidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/smart-compressor/compressor-go/internal/config"
)

// ResolveBinary locates the bundled backend executable. An explicit override
// (config or COMPRESSOR_BACKEND_BINARY_PATH) wins; otherwise well-known
// locations relative to the shell executable are tried in order. Failure here
// is fatal to application startup.
func ResolveBinary(override string) (string, error) {
	if override == "" {
		override = strings.TrimSpace(os.Getenv("COMPRESSOR_BACKEND_BINARY_PATH"))
	}
	if override != "" {
		if resolved, ok := resolveExecutableCandidate(override); ok {
			return resolved, nil
		}
		return "", fmt.Errorf("backend binary override does not point to an executable: %s", override)
	}

	var candidates []string
	seen := make(map[string]struct{})
	addCandidate := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		candidates = append(candidates, clean)
	}

	binaryName := config.SidecarBinaryName
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}

	// Paths derived from the shell executable: next to it, in a resources
	// subdirectory, and inside a macOS app bundle.
	if execPath, err := os.Executable(); err == nil {
		if resolvedExec, err := filepath.EvalSymlinks(execPath); err == nil {
			execDir := filepath.Dir(resolvedExec)
			addCandidate(filepath.Join(execDir, binaryName))
			addCandidate(filepath.Join(execDir, "resources", binaryName))

			// macOS bundle layout: Contents/MacOS/<shell>, Contents/Resources/bin/<backend>
			contentsDir := filepath.Dir(execDir)
			if strings.HasSuffix(contentsDir, "Contents") {
				addCandidate(filepath.Join(contentsDir, "Resources", "bin", binaryName))
			}
		}
	}

	// Working-directory relative binary (local dev workflow).
	addCandidate(filepath.Join(".", binaryName))

	for _, candidate := range candidates {
		if resolved, ok := resolveExecutableCandidate(candidate); ok {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("backend binary %s not found; checked %v", binaryName, candidates)
}

func resolveExecutableCandidate(path string) (string, bool) {
	var abs string
	if filepath.IsAbs(path) {
		abs = path
	} else {
		var err error
		abs, err = filepath.Abs(path)
		if err != nil {
			return "", false
		}
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", false
	}

	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return "", false
	}

	return abs, true
}

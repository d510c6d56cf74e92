// Package diskspace определяет свободное место на томе, где будет создан файл.
package diskspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoExistingParent возвращается, если ни один из родительских каталогов пути не существует.
var ErrNoExistingParent = errors.New("no existing parent directory")

// Probe возвращает свободное место в байтах для тома, содержащего path.
type Probe func(path string) (uint64, error)

// FreeBytes возвращает число байт, доступных текущему пользователю на томе,
// где будет создан файл path. Файл может ещё не существовать: используется
// ближайший существующий родительский каталог.
func FreeBytes(path string) (uint64, error) {
	dir, err := existingDir(path)
	if err != nil {
		return 0, err
	}
	free, err := freeBytes(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to query free space for %s: %w", dir, err)
	}
	return free, nil
}

// existingDir поднимается по пути до первого существующего каталога.
func existingDir(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if st, statErr := os.Stat(p); statErr == nil {
			if st.IsDir() {
				return p, nil
			}
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("%w: %s", ErrNoExistingParent, path)
		}
		p = parent
	}
}

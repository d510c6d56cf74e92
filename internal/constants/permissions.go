package constants

import "os"

// Права каталогов.
const (
	// DirPermStandard: каталоги логов и протоколов операций
	DirPermStandard os.FileMode = 0o750
	// DirPermPrivate: каталоги только для владельца
	DirPermPrivate os.FileMode = 0o700
)

// Права файлов.
const (
	// FilePermReadWrite: файлы, читаемые группой
	FilePermReadWrite os.FileMode = 0o640
	// FilePermPrivate: файлы только для владельца
	FilePermPrivate os.FileMode = 0o600
)

package logging

// Форматы вывода логов.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Уровни логирования.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Назначения вывода логов.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
	// OutputTee пишет одновременно в stderr и в файл с ротацией.
	OutputTee = "tee"
)

// Значения по умолчанию для Config.
const (
	DefaultLevel      = LevelInfo
	DefaultFormat     = FormatText
	DefaultOutput     = OutputStderr
	DefaultFilePath   = `C:\ProgramData\wsus-dbmaint\logs\wsus-dbmaint.log`
	DefaultMaxSize    = 50 // MB
	DefaultMaxBackups = 5
	DefaultMaxAge     = 30 // days
	DefaultCompress   = true
)

// DefaultConfig возвращает Config со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		Level:      DefaultLevel,
		Format:     DefaultFormat,
		Output:     DefaultOutput,
		FilePath:   DefaultFilePath,
		MaxSize:    DefaultMaxSize,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAge,
		Compress:   DefaultCompress,
	}
}

// Config содержит настройки логирования.
type Config struct {
	// Format: "json" или "text"
	Format string
	// Level: минимальный уровень: debug, info, warn, error
	Level string
	// Output: stderr, file или tee
	Output string
	// FilePath: файл логов для file и tee
	FilePath string
	// MaxSize: размер файла в МБ до ротации
	MaxSize int
	// MaxBackups: число сохраняемых архивов
	MaxBackups int
	// MaxAge: срок хранения архивов в днях
	MaxAge int
	// Compress: сжимать архивы в gzip
	Compress bool
}

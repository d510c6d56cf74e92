package maintenance

// RestoreState - состояние протокола восстановления.
type RestoreState int

// Состояния перечислены в порядке прохождения.
const (
	StateIdle RestoreState = iota
	StatePrivilegeChecked
	StateFileValidated
	StateIntegrityVerified
	StateServicesQuiesced
	StateSingleUserSet
	StateRestored
	StateMultiUserSet
	StatePostInstallRun
	StateServicesResumed
	StateDone
)

var restoreStateNames = [...]string{
	"Idle",
	"PrivilegeChecked",
	"FileValidated",
	"IntegrityVerified",
	"ServicesQuiesced",
	"SingleUserSet",
	"Restored",
	"MultiUserSet",
	"PostInstallRun",
	"ServicesResumed",
	"Done",
}

// String возвращает имя состояния.
func (s RestoreState) String() string {
	if s < 0 || int(s) >= len(restoreStateNames) {
		return "Unknown"
	}
	return restoreStateNames[s]
}

// RequiresResume сообщает, затронуты ли уже службы: начиная с ServicesQuiesced
// любой выход из протокола обязан попытаться запустить их снова.
func (s RestoreState) RequiresResume() bool {
	return s >= StateServicesQuiesced && s < StateServicesResumed
}

// RestoreOutcome - данные результата восстановления.
type RestoreOutcome struct {
	// Reached - последнее достигнутое состояние.
	Reached RestoreState
	// Warnings - нефатальные предупреждения (MULTI_USER, postinstall, запуск служб).
	Warnings []string
	// Resumed - хвост запуска служб выполнен.
	Resumed bool
	// ResumeFailed - хотя бы одну службу не удалось запустить.
	ResumeFailed bool
}

// BackupOutcome - данные результата резервного копирования.
type BackupOutcome struct {
	BackupPath  string
	SizeBytes   int64
	SizeBefore  SizeSample
	DiskFreeGB  float64
	DurationSec float64
}

// CleanupOutcome - данные результата очистки.
type CleanupOutcome struct {
	Before      SizeSample
	After       SizeSample
	Executor    string
	Step        CleanupStepReport
	DurationSec float64
}

// DeltaGB возвращает освобождённый объём или UnknownSize, если один из замеров неизвестен.
func (o CleanupOutcome) DeltaGB() float64 {
	if !o.Before.Known() || !o.After.Known() {
		return UnknownSize
	}
	return o.Before.AllocatedGB - o.After.AllocatedGB
}

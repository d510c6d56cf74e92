package constants

// Version и PreCommitHash задаются при сборке:
//
//	go build -ldflags "-X github.com/Kargones/wsus-dbmaint/internal/constants.Version=1.4.0 \
//	  -X github.com/Kargones/wsus-dbmaint/internal/constants.PreCommitHash=$(git rev-parse --short HEAD)"
var (
	Version       = "dev"
	PreCommitHash = "unknown"
)

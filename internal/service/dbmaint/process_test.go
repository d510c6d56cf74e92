package dbmaint

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/progress"
)

func TestExternalProcess_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-скрипты проверяются только на unix")
	}
	script := filepath.Join(t.TempDir(), "postinstall.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"Post install is starting\"\nprintf '%s\\n' \"$1\"\nexit 4\n"), 0o600))

	rec := progress.NewRecorder()
	p := &ExternalProcess{}
	res, err := p.Run(context.Background(), "/bin/sh", []string{script, `SQL_INSTANCE_NAME=WSUS01\SQLEXPRESS`}, rec)

	require.NoError(t, err)
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, []string{"Post install is starting", `SQL_INSTANCE_NAME=WSUS01\SQLEXPRESS`}, rec.Lines())
}

func TestExternalProcess_ContentPathWithShellChars(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-скрипты проверяются только на unix")
	}
	script := filepath.Join(t.TempDir(), "postinstall.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nprintf '%s\\n' \"$1\"\n"), 0o600))

	rec := progress.NewRecorder()
	p := &ExternalProcess{}
	arg := `CONTENT_DIR=D:\R&D\WsusContent`
	res, err := p.Run(context.Background(), "/bin/sh", []string{script, arg}, rec)

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{arg}, rec.Lines())
}

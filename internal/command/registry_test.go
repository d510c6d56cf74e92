package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/wsus-dbmaint/internal/config"
)

type mockHandler struct {
	name  string
	calls int
	err   error
}

func (m *mockHandler) Name() string        { return m.name }
func (m *mockHandler) Description() string { return "mock: " + m.name }
func (m *mockHandler) Execute(_ context.Context, _ *config.Config) error {
	m.calls++
	return m.err
}

func TestRegister(t *testing.T) {
	t.Run("успешная регистрация", func(t *testing.T) {
		clearRegistry()
		h := &mockHandler{name: "nr-db-verify"}
		require.NoError(t, Register(h))

		got, ok := Get("nr-db-verify")
		assert.True(t, ok)
		assert.Same(t, h, got)
	})

	t.Run("повторная регистрация", func(t *testing.T) {
		clearRegistry()
		require.NoError(t, Register(&mockHandler{name: "nr-db-backup"}))
		err := Register(&mockHandler{name: "nr-db-backup"})
		assert.ErrorIs(t, err, ErrDuplicateHandler)
	})

	t.Run("nil", func(t *testing.T) {
		clearRegistry()
		assert.ErrorIs(t, Register(nil), ErrNilHandler)
	})

	names := []string{"", "NR-DB", "nr_db", "nr-db-", "nr--db", "1nr", "-nr"}
	for _, name := range names {
		t.Run(fmt.Sprintf("невалидное имя %q", name), func(t *testing.T) {
			clearRegistry()
			assert.ErrorIs(t, Register(&mockHandler{name: name}), ErrInvalidName)
		})
	}
}

func TestGet_Unknown(t *testing.T) {
	clearRegistry()
	h, ok := Get("nr-db-unknown")
	assert.False(t, ok)
	assert.Nil(t, h)
}

func TestAllAndNames(t *testing.T) {
	clearRegistry()
	require.NoError(t, Register(&mockHandler{name: "nr-db-restore"}))
	require.NoError(t, RegisterWithAlias(&mockHandler{name: "nr-db-backup"}, "backup"))

	assert.Equal(t, []string{"backup", "nr-db-backup", "nr-db-restore"}, Names())

	all := All()
	assert.Len(t, all, 3)
	delete(all, "backup")
	_, ok := Get("backup")
	assert.True(t, ok, "изменение копии не затрагивает реестр")
}

func TestRegisterWithAlias(t *testing.T) {
	t.Run("мост под устаревшим именем", func(t *testing.T) {
		clearRegistry()
		h := &mockHandler{name: "nr-db-cleanup"}
		require.NoError(t, RegisterWithAlias(h, "cleanup"))

		got, ok := Get("cleanup")
		require.True(t, ok)
		bridge, ok := got.(*DeprecatedBridge)
		require.True(t, ok)
		assert.Equal(t, "cleanup", bridge.Name())
		assert.Equal(t, "nr-db-cleanup", bridge.NewName())
		assert.True(t, bridge.IsDeprecated())
		assert.Equal(t, h.Description(), bridge.Description())
	})

	t.Run("без алиаса", func(t *testing.T) {
		clearRegistry()
		require.NoError(t, RegisterWithAlias(&mockHandler{name: "nr-db-verify"}, ""))
		assert.Equal(t, []string{"nr-db-verify"}, Names())
	})

	t.Run("алиас совпадает с именем", func(t *testing.T) {
		clearRegistry()
		err := RegisterWithAlias(&mockHandler{name: "nr-version"}, "nr-version")
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("занятый алиас", func(t *testing.T) {
		clearRegistry()
		require.NoError(t, RegisterWithAlias(&mockHandler{name: "nr-db-restore"}, "restore"))
		err := RegisterWithAlias(&mockHandler{name: "nr-db-restore2"}, "restore")
		assert.ErrorIs(t, err, ErrDuplicateHandler)
	})

	t.Run("nil", func(t *testing.T) {
		clearRegistry()
		assert.ErrorIs(t, RegisterWithAlias(nil, "backup"), ErrNilHandler)
	})
}

func TestListAllWithAliases(t *testing.T) {
	clearRegistry()
	require.NoError(t, RegisterWithAlias(&mockHandler{name: "nr-version"}, "version"))
	require.NoError(t, RegisterWithAlias(&mockHandler{name: "nr-db-backup"}, "backup"))
	require.NoError(t, Register(&mockHandler{name: "help"}))

	assert.Equal(t, []Info{
		{Name: "help"},
		{Name: "nr-db-backup", DeprecatedAlias: "backup"},
		{Name: "nr-version", DeprecatedAlias: "version"},
	}, ListAllWithAliases())
}

func TestRegistry_Concurrent(t *testing.T) {
	clearRegistry()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = Register(&mockHandler{name: fmt.Sprintf("cmd-%d", i)})
		}()
		go func() {
			defer wg.Done()
			_ = Names()
			_, _ = Get("cmd-0")
		}()
	}
	wg.Wait()
	assert.Len(t, Names(), 20)
}

func TestDeprecatedBridge_Execute(t *testing.T) {
	t.Run("предупреждение и делегирование", func(t *testing.T) {
		h := &mockHandler{name: "nr-db-backup", err: errors.New("boom")}
		var buf bytes.Buffer
		b := &DeprecatedBridge{actual: h, deprecated: "backup", newName: "nr-db-backup", warnOut: &buf}

		err := b.Execute(context.Background(), &config.Config{})
		assert.EqualError(t, err, "boom")
		assert.Equal(t, 1, h.calls)
		assert.Equal(t, "WARNING: command 'backup' is deprecated, use 'nr-db-backup' instead\n", buf.String())
	})

	t.Run("отменённый контекст", func(t *testing.T) {
		h := &mockHandler{name: "nr-db-restore"}
		var buf bytes.Buffer
		b := &DeprecatedBridge{actual: h, deprecated: "restore", newName: "nr-db-restore", warnOut: &buf}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, b.Execute(ctx, &config.Config{}), context.Canceled)
		assert.Zero(t, h.calls)
		assert.Empty(t, buf.String())
	})
}

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/wsus-dbmaint/internal/pkg/logging"
)

func enabledConfig(url string) Config {
	return Config{
		Enabled:        true,
		PushgatewayURL: url,
		JobName:        DefaultJobName,
		Timeout:        5 * time.Second,
		InstanceLabel:  "wsus01",
	}
}

func TestPrometheusCollector_Record(t *testing.T) {
	c, err := NewPrometheusCollector(enabledConfig("http://localhost:9091"), logging.NewNopLogger())
	require.NoError(t, err)

	c.RecordCommandStart("nr-db-restore")
	c.RecordCommandEnd("nr-db-restore", 90*time.Second, true)
	c.RecordCommandEnd("nr-db-backup", time.Second, false)
	c.RecordStage("nr-db-restore", "verify", true)
	c.RecordStage("nr-db-restore", "restore", true)
	c.RecordStage("nr-db-restore", "restore", true)

	assert.InDelta(t, 1, testutil.ToFloat64(c.commandTotal.WithLabelValues("nr-db-restore", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.commandTotal.WithLabelValues("nr-db-backup", StatusError)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.stageTotal.WithLabelValues("nr-db-restore", "restore", StatusSuccess)), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(c.commandDuration))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["wsus_dbmaint_command_duration_seconds"])
	assert.True(t, names["wsus_dbmaint_command_total"])
	assert.True(t, names["wsus_dbmaint_stage_total"])
}

func TestPrometheusCollector_Push(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, err := NewPrometheusCollector(enabledConfig(server.URL), logging.NewNopLogger())
	require.NoError(t, err)
	c.RecordCommandEnd("nr-db-cleanup", time.Minute, true)

	require.NoError(t, c.Push(context.Background()))
	got, _ := path.Load().(string)
	assert.True(t, strings.Contains(got, "/job/wsus-dbmaint"), got)
	assert.True(t, strings.Contains(got, "/instance/wsus01"), got)
}

func TestPrometheusCollector_PushErrorsAreSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := NewPrometheusCollector(enabledConfig(server.URL), logging.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, c.Push(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.Push(ctx), "отменённый контекст пропускает отправку")
}

func TestNewCollector(t *testing.T) {
	t.Run("отключено", func(t *testing.T) {
		c, err := NewCollector(DefaultConfig(), logging.NewNopLogger())
		require.NoError(t, err)
		assert.IsType(t, &NopCollector{}, c)
	})

	t.Run("включено", func(t *testing.T) {
		c, err := NewCollector(enabledConfig("http://pushgateway:9091"), logging.NewNopLogger())
		require.NoError(t, err)
		assert.IsType(t, &PrometheusCollector{}, c)
	})

	t.Run("невалидная конфигурация", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  Config
			want error
		}{
			{"нет URL", Config{Enabled: true, JobName: "j", Timeout: time.Second}, ErrPushgatewayURLRequired},
			{"URL без схемы", Config{Enabled: true, PushgatewayURL: "pushgateway", JobName: "j", Timeout: time.Second}, ErrPushgatewayURLInvalid},
			{"нет job", Config{Enabled: true, PushgatewayURL: "http://p:9091", Timeout: time.Second}, ErrJobNameRequired},
			{"нулевой таймаут", Config{Enabled: true, PushgatewayURL: "http://p:9091", JobName: "j"}, ErrInvalidTimeout},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewCollector(tt.cfg, logging.NewNopLogger())
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})
}

func TestNopCollector(t *testing.T) {
	c := NewNopCollector()
	c.RecordCommandStart("x")
	c.RecordCommandEnd("x", time.Second, true)
	c.RecordStage("x", "y", false)
	assert.NoError(t, c.Push(context.Background()))
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "nr-db-backup", sanitizeLabel("nr-db-backup"))
	assert.Equal(t, "a_b", sanitizeLabel("a\nb"))
	assert.Len(t, []rune(sanitizeLabel(strings.Repeat("я", 200))), maxLabelLength)
}

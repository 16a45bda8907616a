package metric

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/flowpipe/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_Register(t *testing.T) {
	t.Run("counter is gathered", func(t *testing.T) {
		registry := NewMetricsRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "A test counter"})

		require.NoError(t, registry.Register("svc", "test_counter", counter))
		counter.Inc()

		families, err := registry.PrometheusRegistry().Gather()
		require.NoError(t, err)
		found := false
		for _, mf := range families {
			if mf.GetName() == "test_counter" {
				found = true
			}
		}
		assert.True(t, found)
		assert.Equal(t, []string{"svc/test_counter"}, registry.Registered())
	})

	t.Run("duplicate registration is invalid", func(t *testing.T) {
		registry := NewMetricsRegistry()
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "g"})

		require.NoError(t, registry.Register("svc", "test_gauge", gauge))
		err := registry.Register("svc", "test_gauge", gauge)
		require.Error(t, err)
		assert.True(t, cerrors.IsInvalid(err))
	})

	t.Run("prometheus conflict under another key is invalid", func(t *testing.T) {
		registry := NewMetricsRegistry()
		h1 := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_hist", Help: "h"})
		h2 := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_hist", Help: "h"})

		require.NoError(t, registry.Register("a", "hist", h1))
		err := registry.Register("b", "hist", h2)
		require.Error(t, err)
		assert.True(t, cerrors.IsInvalid(err))
	})

	t.Run("unregister", func(t *testing.T) {
		registry := NewMetricsRegistry()
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_vec", Help: "v"}, []string{"l"})

		require.NoError(t, registry.Register("svc", "vec", vec))
		assert.True(t, registry.Unregister("svc", "vec"))
		assert.False(t, registry.Unregister("svc", "vec"))
		require.NoError(t, registry.Register("svc", "vec", vec))
	})

	t.Run("register all rolls back", func(t *testing.T) {
		registry := NewMetricsRegistry()
		taken := prometheus.NewGauge(prometheus.GaugeOpts{Name: "taken", Help: "t"})
		require.NoError(t, registry.Register("other", "taken", taken))

		err := registry.RegisterAll("svc", map[string]prometheus.Collector{
			"a": prometheus.NewGauge(prometheus.GaugeOpts{Name: "fresh", Help: "f"}),
			"b": prometheus.NewGauge(prometheus.GaugeOpts{Name: "taken", Help: "t"}),
		})
		require.Error(t, err)
		assert.Equal(t, []string{"other/taken"}, registry.Registered())
	})
}

func TestCoreMetrics(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordInvocation("D", time.Millisecond, nil)
	core.RecordInvocation("D", time.Millisecond, errors.New("boom"))
	core.RecordError("D", "fatal")
	core.RecordPipelineStatus("p", 4)
	core.RecordTasksInFlight("g", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(core.NodeInvocations.WithLabelValues("D", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NodeInvocations.WithLabelValues("D", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.ErrorsTotal.WithLabelValues("D", "fatal")))
	assert.Equal(t, 4.0, testutil.ToFloat64(core.PipelineStatus.WithLabelValues("p")))
	assert.Equal(t, 3.0, testutil.ToFloat64(core.TasksInFlight.WithLabelValues("g")))
}

func TestFrameCounter(t *testing.T) {
	t.Run("with registry", func(t *testing.T) {
		registry := NewMetricsRegistry()
		c := NewFrameCounter(registry, "decoder")

		c.NewFrame()
		c.NewFrame()
		c.FrameProcessed()

		assert.Equal(t, "decoder", c.Name())
		assert.Equal(t, int64(2), c.Started())
		assert.Equal(t, int64(1), c.Processed())
		core := registry.CoreMetrics()
		assert.Equal(t, 2.0, testutil.ToFloat64(core.Frames.WithLabelValues("decoder", "new")))
		assert.Equal(t, 1.0, testutil.ToFloat64(core.FramesInFlight.WithLabelValues("decoder")))
	})

	t.Run("without registry", func(t *testing.T) {
		c := NewFrameCounter(nil, "local")
		c.NewFrame()
		c.FrameProcessed()
		assert.Equal(t, int64(1), c.Processed())
	})
}

func TestServerHandler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordError("node", "fatal")
	srv := NewServer(0, "", registry)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "flowpipe_errors_total"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "http://localhost:9090/metrics", srv.Address())
}

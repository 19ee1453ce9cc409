package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Singleton(t *testing.T) {
	assert.Same(t, New(), New())
}

func TestRecord(t *testing.T) {
	m := New()
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", 404)
		m.RecordPatternRun("completed", 25*time.Millisecond)
		m.RecordPatternUpsert("temporal", errors.New("boom"))
		m.RecordStatsCache(true)
		m.RecordAnalysisEvent("ignored")
	})
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", 200)
		m.RecordPatternRun("completed", time.Second)
		m.RecordPatternUpsert("temporal", nil)
		m.RecordStatsCache(false)
		m.RecordAnalysisEvent("triggered")
	})
}

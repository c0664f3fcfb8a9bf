package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRecordsDuration(t *testing.T) {
	before := testutil.CollectAndCount(KernelDuration)
	Observe("rms_norm", "f32", 0.001, "")
	after := testutil.CollectAndCount(KernelDuration)
	assert.GreaterOrEqual(t, after, before)
}

func TestObserveIncrementsErrorCounterOnFailure(t *testing.T) {
	before := testutil.ToFloat64(KernelErrors.WithLabelValues("linear", "precondition_failed"))
	Observe("linear", "f32", 0.001, "precondition_failed")
	after := testutil.ToFloat64(KernelErrors.WithLabelValues("linear", "precondition_failed"))
	assert.Equal(t, before+1, after)
}

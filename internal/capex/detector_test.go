package capex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grandlivre-dev/grandlivre/internal/money"
)

func cad(s string) money.Money {
	return money.MustFromString(s, "CAD")
}

func TestCheck_ThresholdTriggers(t *testing.T) {
	d := NewDetector()

	det := d.Check(cad("-499.99"), "DEPANNEUR", "")
	assert.False(t, det.IsCapex)

	det = d.Check(cad("-500.00"), "DEPANNEUR", "")
	assert.True(t, det.IsCapex)
	assert.Zero(t, det.CCAClass)
}

func TestCheck_VendorBelowThreshold(t *testing.T) {
	d := NewDetector()

	det := d.Check(cad("-120.00"), "BEST BUY #204", "")
	assert.True(t, det.IsCapex)
	assert.Contains(t, det.Reason, "best buy")
}

func TestCheck_CCAClassKeywords(t *testing.T) {
	d := NewDetector()

	det := d.Check(cad("-2400.00"), "APPLE STORE", "MacBook Pro")
	assert.True(t, det.IsCapex)
	assert.Equal(t, 50, det.CCAClass)

	det = d.Check(cad("-850.00"), "IKEA", "Chaise de bureau")
	assert.Equal(t, 8, det.CCAClass)
}

func TestCheck_SoftwareClassCappedAt500(t *testing.T) {
	d := NewDetector()

	det := d.Check(cad("-300.00"), "APPLE STORE", "Licence antivirus")
	assert.True(t, det.IsCapex)
	assert.Equal(t, 12, det.CCAClass)

	// Above the class 12 cap the software keywords no longer apply.
	det = d.Check(cad("-900.00"), "ADOBE", "Licence logiciel")
	assert.True(t, det.IsCapex)
	assert.Zero(t, det.CCAClass)
}

func TestCheck_Idempotent(t *testing.T) {
	d := NewDetector()
	first := d.Check(cad("-2400.00"), "DELL", "Serveur")
	second := d.Check(cad("-2400.00"), "DELL", "Serveur")
	assert.Equal(t, first, second)
}

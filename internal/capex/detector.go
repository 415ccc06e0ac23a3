// Package capex flags capital expenditures and suggests the Canadian CCA
// class governing their depreciation.
package capex

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Detection is the outcome of a CAPEX check. CCAClass is zero when no
// keyword group matched.
type Detection struct {
	IsCapex  bool
	Reason   string
	CCAClass int
}

// DefaultThreshold is the amount at or above which a transaction is treated
// as a capital expenditure.
var DefaultThreshold = decimal.NewFromInt(500)

type keywordGroup struct {
	class     int
	keywords  []string
	maxAmount *decimal.Decimal // class 12 applies to software at or under 500
}

// Detector holds the threshold, the known capital-goods vendors, and the
// ordered CCA keyword table. First keyword group hit wins.
type Detector struct {
	threshold decimal.Decimal
	vendors   []string
	groups    []keywordGroup
}

// NewDetector creates a Detector with the default threshold and tables.
func NewDetector() *Detector {
	softwareCap := DefaultThreshold
	return &Detector{
		threshold: DefaultThreshold,
		vendors: []string{
			"apple store", "best buy", "bureau en gros", "canada computers",
			"dell", "ikea", "lenovo", "staples",
		},
		groups: []keywordGroup{
			{class: 8, keywords: []string{"bureau", "chaise", "desk", "furniture", "meuble", "mobilier"}},
			{class: 10, keywords: []string{"auto", "camion", "truck", "vehicule", "vehicle", "voiture"}},
			{class: 12, keywords: []string{"licence", "license", "logiciel", "software"}, maxAmount: &softwareCap},
			{class: 50, keywords: []string{"cellulaire", "computer", "ecran", "iphone", "laptop", "macbook", "monitor", "ordinateur", "phone", "serveur", "server"}},
			{class: 54, keywords: []string{"vehicule electrique", "vehicule zero emission", "zero-emission"}},
		},
	}
}

// Check runs the detection. It is a pure function of its inputs; running it
// twice yields equal results.
func (d *Detector) Check(amount money.Money, payee, narration string) Detection {
	abs := amount.Abs().Amount
	text := strings.ToLower(payee + " " + narration)

	det := Detection{}
	if abs.GreaterThanOrEqual(d.threshold) {
		det.IsCapex = true
		det.Reason = "amount at or above capitalisation threshold"
	} else {
		for _, v := range d.vendors {
			if strings.Contains(text, v) {
				det.IsCapex = true
				det.Reason = "known capital-goods vendor: " + v
				break
			}
		}
	}
	if !det.IsCapex {
		return det
	}

	for _, g := range d.groups {
		if g.maxAmount != nil && abs.GreaterThan(*g.maxAmount) {
			continue
		}
		for _, kw := range g.keywords {
			if strings.Contains(text, kw) {
				det.CCAClass = g.class
				return det
			}
		}
	}
	return det
}

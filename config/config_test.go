package config

import (
	"testing"

	"go.viam.com/test"
)

func TestDefaultValidates(t *testing.T) {
	p := Default()
	test.That(t, p.Validate(), test.ShouldBeNil)
}

func TestValidateRejectsBadFudgeFactor(t *testing.T) {
	p := Default()
	p.Car.FudgeFactor = 1.5
	test.That(t, p.Validate(), test.ShouldNotBeNil)
}

func TestValidateRejectsEmptyFootprint(t *testing.T) {
	p := Default()
	p.Boat.VPS = nil
	test.That(t, p.Validate(), test.ShouldNotBeNil)
}

func TestValidateRejectsNonPositiveDT(t *testing.T) {
	p := Default()
	p.Escape.DT = 0
	test.That(t, p.Validate(), test.ShouldNotBeNil)
}

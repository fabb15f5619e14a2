package operation

import (
	"context"
	"testing"

	"go.viam.com/test"
)

func TestCancelOtherWithLabelCancelsPrevious(t *testing.T) {
	m := NewManager()
	ctx1 := m.CancelOtherWithLabel(context.Background(), "move")
	ctx2 := m.CancelOtherWithLabel(context.Background(), "move")

	select {
	case <-ctx1.Done():
	default:
		t.Fatal("expected ctx1 to be canceled by the second registration")
	}
	select {
	case <-ctx2.Done():
		t.Fatal("ctx2 should still be active")
	default:
	}
}

func TestCancelOtherWithLabelIsPerLabel(t *testing.T) {
	m := NewManager()
	ctxA := m.CancelOtherWithLabel(context.Background(), "a")
	ctxB := m.CancelOtherWithLabel(context.Background(), "b")

	select {
	case <-ctxA.Done():
		t.Fatal("distinct labels must not cancel each other")
	default:
	}
	select {
	case <-ctxB.Done():
		t.Fatal("distinct labels must not cancel each other")
	default:
	}
}

func TestDoneClearsSlot(t *testing.T) {
	m := NewManager()
	m.CancelOtherWithLabel(context.Background(), "move")
	m.Done("move")
	test.That(t, len(m.active), test.ShouldEqual, 0)
}

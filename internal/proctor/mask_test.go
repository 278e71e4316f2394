package proctor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskAcquireRelease(t *testing.T) {
	m := NewMask()
	assert.False(t, m.Ignores(CategoryFocus))

	release := m.Acquire(CategoryFocus)
	assert.True(t, m.Ignores(CategoryFocus))
	assert.False(t, m.Ignores(CategoryVisibility), "only the acquired category is masked")

	release()
	assert.False(t, m.Ignores(CategoryFocus))
}

func TestMaskReleaseIsIdempotentAndNests(t *testing.T) {
	m := NewMask()
	outer := m.Acquire(CategoryFocus)
	inner := m.Acquire(CategoryFocus)

	inner()
	inner()
	assert.True(t, m.Ignores(CategoryFocus))

	outer()
	assert.False(t, m.Ignores(CategoryFocus))
}

func TestMaskRestoredWhenScopePanics(t *testing.T) {
	m := NewMask()
	func() {
		defer func() { _ = recover() }()
		release := m.Acquire(CategoryFocus)
		defer release()
		panic("confirmation failed")
	}()
	assert.False(t, m.Ignores(CategoryFocus))
}

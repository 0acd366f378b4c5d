package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC)
}

func TestRecipient_InQuietHours(t *testing.T) {
	r := Recipient{QuietStart: 9, QuietEnd: 17}
	assert.False(t, r.InQuietHours(at(8)))
	assert.True(t, r.InQuietHours(at(9)))
	assert.True(t, r.InQuietHours(at(16)))
	assert.False(t, r.InQuietHours(at(17))) // end is exclusive
	assert.False(t, r.InQuietHours(at(23)))
}

func TestRecipient_QuietHoursWrapMidnight(t *testing.T) {
	r := Recipient{QuietStart: 22, QuietEnd: 7}
	assert.True(t, r.InQuietHours(at(23)))
	assert.True(t, r.InQuietHours(at(3)))
	assert.True(t, r.InQuietHours(at(6)))
	assert.False(t, r.InQuietHours(at(7)))
	assert.False(t, r.InQuietHours(at(12)))
	assert.False(t, r.InQuietHours(at(21)))
}

func TestRecipient_NoQuietWindow(t *testing.T) {
	r := Recipient{}
	for h := 0; h < 24; h++ {
		assert.False(t, r.InQuietHours(at(h)))
	}
}

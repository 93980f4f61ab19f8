package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReminderMinutes(t *testing.T) {
	assert.Equal(t, []int{30, 60, 1440}, NormalizeReminderMinutes([]int{1440, 30, 60, 30}))
	assert.Equal(t, []int{}, NormalizeReminderMinutes(nil))
	assert.Equal(t, []int{15}, NormalizeReminderMinutes([]int{15, 15, 15}))
}

func TestSameReminderMinutes(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
		want bool
	}{
		{"identical", []int{30, 60}, []int{30, 60}, true},
		{"reordered", []int{60, 30}, []int{30, 60}, true},
		{"duplicates ignored", []int{30, 30, 60}, []int{60, 30}, true},
		{"different values", []int{30, 60}, []int{30, 90}, false},
		{"different lengths", []int{30}, []int{30, 60}, false},
		{"both empty", nil, []int{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameReminderMinutes(tt.a, tt.b))
		})
	}
}

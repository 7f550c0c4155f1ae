package font

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasRTL(t *testing.T) {
	assert.False(t, HasRTL("hello"))
	assert.False(t, HasRTL(""))
	assert.True(t, HasRTL("سلام"))
	assert.True(t, HasRTL("ok שלום"))
}

func TestVisualOrder(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ltr unchanged", "Hello there", "Hello there"},
		{"empty", "", ""},
		{"pure rtl", "سلام دوست من", "نم تسود مالس"},
		{"rtl with digits", "سلام 123 تا", "ات 123 مالس"},
		{"rtl with latin", "سلام world خوب", "بوخ world مالس"},
		{"rtl with two latin words", "این Hello there است", "تسا Hello there نیا"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisualOrder(tt.in)
			assert.Equal(t, tt.want, got)
			assert.ElementsMatch(t, []rune(tt.in), []rune(got))
		})
	}
}

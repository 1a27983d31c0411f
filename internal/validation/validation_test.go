package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceName(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Code
	}{
		{"empty", "", CodeRequired},
		{"uppercase", "MyShop", CodeInvalidFormat},
		{"underscore", "my_shop", CodeInvalidFormat},
		{"dot", "my.shop", CodeInvalidFormat},
		{"space", "my shop", CodeInvalidFormat},
		{"unicode", "café", CodeInvalidFormat},
		{"too short", "ab", CodeTooShort},
		{"single hyphen", "-", CodeTooShort},
		{"minimum length", "abc", CodeOK},
		{"hyphens and digits", "shop-2024", CodeOK},
		{"all hyphens", "---", CodeOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InstanceName(tt.value)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.want == CodeOK, got.Valid)
			if !got.Valid {
				assert.NotEmpty(t, got.Message)
			}
		})
	}
}

// Every name of length >= 3 over [a-z0-9-] is valid; everything else is not.
func TestInstanceName_AgreesWithReferencePattern(t *testing.T) {
	alphabet := []string{"a", "z", "0", "9", "-", "A", "_", ".", " "}
	var inputs []string
	for _, a := range alphabet {
		inputs = append(inputs, a)
		for _, b := range alphabet {
			inputs = append(inputs, a+b)
			for _, c := range alphabet {
				inputs = append(inputs, a+b+c, a+b+c+"x1")
			}
		}
	}

	for _, in := range inputs {
		want := len(in) >= 3 && strings.Trim(in, "abcdefghijklmnopqrstuvwxyz0123456789-") == ""
		got := InstanceName(in)
		if got.Valid != want {
			t.Fatalf("InstanceName(%q).Valid = %v, want %v", in, got.Valid, want)
		}
		if !got.Valid && got.Message == "" {
			t.Fatalf("InstanceName(%q) returned an empty message", in)
		}
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		value string
		want  Code
	}{
		{"", CodeRequired},
		{"plain", CodeInvalidFormat},
		{"user@host", CodeInvalidFormat},
		{"@example.com", CodeInvalidFormat},
		{"user @example.com", CodeInvalidFormat},
		{"user@example.com", CodeOK},
		{"first.last+tag@sub.example.co", CodeOK},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := Email(tt.value)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.want == CodeOK, got.Valid)
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Code
	}{
		{"empty", "", CodeRequired},
		{"five ascii", "12345", CodeTooShort},
		{"six ascii", "123456", CodeOK},
		{"three accented", "ñññ", CodeTooShort},
		{"three cjk", "密码码", CodeTooShort},
		{"six accented", "ñññððð", CodeOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Password(tt.value)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.want == CodeOK, got.Valid)
		})
	}
}

func TestResult_Error(t *testing.T) {
	assert.NoError(t, InstanceName("shop").Error())

	err := InstanceName("").Error()
	if assert.Error(t, err) {
		assert.Equal(t, "Instance name is required", err.Error())
	}
}

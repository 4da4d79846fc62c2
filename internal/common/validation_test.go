package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestValidator_Clean(t *testing.T) {
	v := NewValidator().
		Field("filename", "week 12.xlsx", Required, MaxLength(255), WorkbookFilename).
		Field("data", []byte("PK"), Required, MaxBytes(10))

	assert.False(t, v.HasErrors())
	assert.Empty(t, v.Errors())
	assert.NoError(t, v.Err())
}

func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name  string
		value any
		rules []ValidationRule
		kind  error
	}{
		{"nil required", nil, []ValidationRule{Required}, ErrInvalidInput},
		{"blank required", "   ", []ValidationRule{Required}, ErrInvalidInput},
		{"empty bytes", []byte{}, []ValidationRule{Required}, ErrInvalidInput},
		{"too long", strings.Repeat("é", 6), []ValidationRule{MaxLength(5)}, ErrInvalidInput},
		{"csv", "orders.csv", []ValidationRule{WorkbookFilename}, ErrUnsupportedFile},
		{"no extension", "orders", []ValidationRule{WorkbookFilename}, ErrUnsupportedFile},
		{"not a string", 42, []ValidationRule{WorkbookFilename}, ErrInvalidInput},
		{"bytes over limit", make([]byte, 11), []ValidationRule{MaxBytes(10)}, ErrUploadTooLarge},
		{"length over limit", 11, []ValidationRule{MaxBytes(10)}, ErrUploadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidator().Field("f", tt.value, tt.rules...).Err()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestValidator_Passes(t *testing.T) {
	assert.False(t, NewValidator().Field("f", strings.Repeat("é", 5), MaxLength(5)).HasErrors())
	assert.False(t, NewValidator().Field("f", "Orders.XLSX", WorkbookFilename).HasErrors())
	assert.False(t, NewValidator().Field("f", make([]byte, 10), MaxBytes(10)).HasErrors())
	assert.False(t, NewValidator().Field("f", make([]byte, 10), MaxBytes(0)).HasErrors(), "zero limit disables the check")
}

func TestValidator_CollectsAll(t *testing.T) {
	v := NewValidator().
		Field("filename", "report.pdf", WorkbookFilename).
		Field("data", make([]byte, 20), MaxBytes(10))

	require.Len(t, v.Errors(), 2)
	assert.Equal(t, "filename", v.Errors()[0].Field)
	assert.Equal(t, 20, v.Errors()[1].Value)

	err := v.Err()
	assert.ErrorIs(t, err, ErrUnsupportedFile)
	assert.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestValidationError_DefaultKind(t *testing.T) {
	err := ValidationError{Field: "f", Value: "x", Message: "is odd"}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "field 'f'")
}

func TestToStatus_ValidationFailures(t *testing.T) {
	tooLarge := NewValidator().Field("data", 11, MaxBytes(10)).Err()
	assert.Equal(t, codes.ResourceExhausted, status.Code(ToStatus(tooLarge)))

	badName := NewValidator().Field("filename", "a.txt", WorkbookFilename).Err()
	assert.Equal(t, codes.InvalidArgument, status.Code(ToStatus(badName)))

	plain := ValidationError{Field: "f", Message: "bad"}
	assert.Equal(t, codes.InvalidArgument, status.Code(ToStatus(plain)))

	assert.Equal(t, codes.Internal, status.Code(ToStatus(errors.New("boom"))))
}

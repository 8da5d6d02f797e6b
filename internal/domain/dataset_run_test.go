package domain

import (
	"reflect"
	"testing"
)

func TestParseVariants(t *testing.T) {
	tests := []struct {
		raw     string
		want    []Variant
		wantErr bool
	}{
		{"no_temp,with_temp", []Variant{VariantNoTemp, VariantWithTemp}, false},
		{" WITH_TEMP ", []Variant{VariantWithTemp}, false},
		{"no_temp,,", []Variant{VariantNoTemp}, false},
		{"", nil, true},
		{"hourly", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseVariants(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVariants(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseVariants(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestVariant_UsesTemperature(t *testing.T) {
	if VariantNoTemp.UsesTemperature() {
		t.Error("no_temp should not use temperature")
	}
	if !VariantWithTemp.UsesTemperature() {
		t.Error("with_temp should use temperature")
	}
}

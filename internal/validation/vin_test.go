package validation

import "testing"

func TestIsValidVIN(t *testing.T) {
	tests := []struct {
		name string
		vin  string
		want bool
	}{
		{
			name: "valid VIN with digit check",
			vin:  "1M8GDM9AXKP042788",
			want: true,
		},
		{
			name: "valid VIN all ones",
			vin:  "11111111111111111",
			want: true,
		},
		{
			name: "wrong check digit",
			vin:  "1M8GDM9A1KP042788",
			want: false,
		},
		{
			name: "too short",
			vin:  "1M8GDM9AXKP04278",
			want: false,
		},
		{
			name: "too long",
			vin:  "1M8GDM9AXKP0427888",
			want: false,
		},
		{
			name: "forbidden letter I",
			vin:  "1M8GDM9AXKP04278I",
			want: false,
		},
		{
			name: "forbidden letter O",
			vin:  "1M8GDM9AXKPO42788",
			want: false,
		},
		{
			name: "forbidden letter Q",
			vin:  "QM8GDM9AXKP042788",
			want: false,
		},
		{
			name: "lowercase rejected",
			vin:  "1m8gdm9axkp042788",
			want: false,
		},
		{
			name: "empty",
			vin:  "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidVIN(tt.vin); got != tt.want {
				t.Errorf("IsValidVIN(%q) = %v, want %v", tt.vin, got, tt.want)
			}
		})
	}
}

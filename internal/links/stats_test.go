package links

import "testing"

func TestPercentage(t *testing.T) {
	tests := []struct {
		name  string
		count int64
		total int64
		want  float64
	}{
		{"zero total", 0, 0, 0},
		{"whole share", 3, 4, 75.00},
		{"repeating decimal rounds", 1, 3, 33.33},
		{"rounds up", 2, 3, 66.67},
		{"full share", 5, 5, 100.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentage(tt.count, tt.total); got != tt.want {
				t.Errorf("percentage(%d, %d) = %v, want %v", tt.count, tt.total, got, tt.want)
			}
		})
	}
}

func TestSortVisits(t *testing.T) {
	visits := []Visit{
		{Country: "DE", Count: 1},
		{Country: "US", Count: 3},
		{Country: "BR", Count: 3},
	}
	sortVisits(visits)

	want := []string{"BR", "US", "DE"}
	for i, w := range want {
		if visits[i].Country != w {
			t.Errorf("visits[%d].Country = %q, want %q", i, visits[i].Country, w)
		}
	}
}

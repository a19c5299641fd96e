package shiftcontrol

import "testing"

func TestInterp_BoundaryAndMidpoints(t *testing.T) {
	table := [5]int{15, 20, 30, 45, 60}

	cases := []struct {
		throttle float64
		want     int
	}{
		{throttle: 0, want: 15},
		{throttle: 10, want: 15},
		{throttle: 17.5, want: 17}, // midpoint of [10,25] -> (15+20)/2=17.5 truncated to 17
		{throttle: 25, want: 20},
		{throttle: 37.5, want: 25}, // midpoint of [25,50] -> (20+30)/2=25
		{throttle: 50, want: 30},
		{throttle: 62.5, want: 37}, // midpoint of [50,75] -> (30+45)/2=37.5 truncated to 37
		{throttle: 75, want: 45},
		{throttle: 87.5, want: 52}, // midpoint of [75,100] -> (45+60)/2=52.5 truncated to 52
		{throttle: 100, want: 60},
	}
	for _, tc := range cases {
		if got := interp(table, tc.throttle); got != tc.want {
			t.Errorf("interp(%v, %v) = %d, want %d", table, tc.throttle, got, tc.want)
		}
	}
}

func TestTableSelection_PowerModeSwapsUpshiftOnly(t *testing.T) {
	if table12(false) != table12Normal || table12(true) != table12Power {
		t.Fatalf("table12 does not select by power_mode")
	}
	if table23(false) != table23Normal || table23(true) != table23Power {
		t.Fatalf("table23 does not select by power_mode")
	}
	if table34(false) != table34Normal || table34(true) != table34Power {
		t.Fatalf("table34 does not select by power_mode")
	}
}

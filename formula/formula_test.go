package formula

import "testing"

func gridResolver(cells map[string]string) Resolver {
	return func(row, col int) (string, bool) {
		for ref, val := range cells {
			r, c, ok := ParseRef(ref)
			if ok && r == row && c == col {
				return val, true
			}
		}
		return "", false
	}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	cases := []struct {
		expr     string
		expected string
	}{
		{"=1+2*3", "7"},
		{"=(1+2)*3", "9"},
		{"=10/4", "2.5"},
		{"=-5+2", "-3"},
		{"=2*-3", "-6"},
		{"= 1 + 1 ", "2"},
		{"=0.1+0.4", "0.5"},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.expr, nil); got != tc.expected {
			t.Fatalf("Evaluate(%q) expected %s, got %s", tc.expr, tc.expected, got)
		}
	}
}

func TestEvaluate_CellReferences(t *testing.T) {
	resolve := gridResolver(map[string]string{
		"A1": "10",
		"B1": "4",
		"C2": "2.5",
	})

	cases := []struct {
		expr     string
		expected string
	}{
		{"=A1*2", "20"},
		{"=A1+B1", "14"},
		{"=a1-b1", "6"},
		{"=C2*4", "10"},
		// empty cells resolve to 0
		{"=Z9+1", "1"},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.expr, resolve); got != tc.expected {
			t.Fatalf("Evaluate(%q) expected %s, got %s", tc.expr, tc.expected, got)
		}
	}
}

func TestEvaluate_Functions(t *testing.T) {
	resolve := gridResolver(map[string]string{"A1": "10", "A2": "20"})

	cases := []struct {
		expr     string
		expected string
	}{
		{"=SUM(1,2,3)", "6"},
		{"=sum(A1,A2)", "30"},
		{"=AVERAGE(2,4,6)", "4"},
		{"=MAX(1,9,5)", "9"},
		{"=MIN(3,1,2)", "1"},
		{"=SUM(1,2)+MAX(3,4)", "7"},
		{"=SUM(A1*2, 5)", "25"},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.expr, resolve); got != tc.expected {
			t.Fatalf("Evaluate(%q) expected %s, got %s", tc.expr, tc.expected, got)
		}
	}
}

func TestEvaluate_ErrorsYieldSentinel(t *testing.T) {
	resolve := gridResolver(map[string]string{"A1": "hello"})

	cases := []string{
		"=UNDEFINED_FN(1)",
		"=1/0",
		"=1+",
		"=(1+2",
		"=A1*2", // non-numeric reference
		"=SUM()",
		"=1 2",
		"=$%",
		"=",
	}
	for _, expr := range cases {
		if got := Evaluate(expr, resolve); got != ErrorValue {
			t.Fatalf("Evaluate(%q) expected %s, got %s", expr, ErrorValue, got)
		}
	}
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		ref      string
		row, col int
		ok       bool
	}{
		{"A1", 0, 0, true},
		{"B3", 2, 1, true},
		{"Z1", 0, 25, true},
		{"AA1", 0, 26, true},
		{"AB3", 2, 27, true},
		{"A0", 0, 0, false},
		{"1A", 0, 0, false},
		{"ABC", 0, 0, false},
	}
	for _, tc := range cases {
		row, col, ok := ParseRef(tc.ref)
		if ok != tc.ok {
			t.Fatalf("ParseRef(%q) ok expected %v, got %v", tc.ref, tc.ok, ok)
		}
		if ok && (row != tc.row || col != tc.col) {
			t.Fatalf("ParseRef(%q) expected (%d,%d), got (%d,%d)", tc.ref, tc.row, tc.col, row, col)
		}
	}
}

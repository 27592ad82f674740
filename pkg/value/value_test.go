package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{Bool(false), false},
		{Bool(true), true},
		{Int(0), false},
		{Int(1), true},
		{Float(0), false},
		{String(""), false},
		{String("x"), true},
		{List(nil), false},
		{List([]Value{Int(1)}), true},
		{Map(nil), false},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualPromotesNumeric(t *testing.T) {
	if !Equal(Int(3), Float(3.0)) {
		t.Error("expected Int(3) == Float(3.0)")
	}
	if Equal(String("3"), Int(3)) {
		t.Error("expected String(3) != Int(3)")
	}
	if !Equal(Null, Null) {
		t.Error("expected Null == Null")
	}
	if Equal(Null, Int(0)) {
		t.Error("expected Null != Int(0)")
	}
}

func TestCompareCrossCategoryFails(t *testing.T) {
	if _, err := Compare(String("a"), Int(1)); err == nil {
		t.Error("expected error comparing string to int")
	}
	cmp, err := Compare(Int(1), Float(2.5))
	if err != nil || cmp >= 0 {
		t.Errorf("expected 1 < 2.5, got cmp=%d err=%v", cmp, err)
	}
}

func TestListEqualityIsStructural(t *testing.T) {
	a := List([]Value{Int(1), String("x")})
	b := List([]Value{Int(1), String("x")})
	c := List([]Value{Int(1), String("y")})
	if !Equal(a, b) {
		t.Error("expected structurally equal lists to be equal")
	}
	if Equal(a, c) {
		t.Error("expected structurally different lists to differ")
	}
}

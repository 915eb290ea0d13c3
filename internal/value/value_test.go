package value

import "testing"

func TestScalarRoundTrip(t *testing.T) {
	if v := IntValue(42); !v.IsInteger() || v.Int() != 42 {
		t.Fatalf("integer round-trip failed: %+v", v)
	}
	if v := RealValue(3.5); !v.IsReal() || v.Real() != 3.5 {
		t.Fatalf("real round-trip failed: %+v", v)
	}
	if v := BoolValue(true); !v.IsBool() || !v.Bool() {
		t.Fatalf("bool round-trip failed: %+v", v)
	}
	if v := BoolValue(false); v.Bool() {
		t.Fatalf("false boolean must encode as 0")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{NilValue, false},
		{BoolValue(false), false},
		{BoolValue(true), true},
		{IntValue(0), false},
		{IntValue(1), true},
		{RealValue(0), false},
		{RealValue(0.1), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v.DebugString(), got, c.want)
		}
	}
}

func TestEqualScalars(t *testing.T) {
	if !Equal(IntValue(1), IntValue(1)) {
		t.Errorf("expected equal integers to compare equal")
	}
	if Equal(IntValue(1), IntValue(2)) {
		t.Errorf("expected different integers to compare unequal")
	}
	if Equal(IntValue(1), RealValue(1)) {
		t.Errorf("different kinds must never compare equal")
	}
}

func TestEqualRefIdentity(t *testing.T) {
	type box struct{ n int }
	a := &box{1}
	b := &box{1}
	va := NewRef(Object, a)
	vb := NewRef(Object, b)
	vaAgain := NewRef(Object, a)

	if Equal(va, vb) {
		t.Errorf("distinct ref instances with equal contents must not compare equal")
	}
	if !Equal(va, vaAgain) {
		t.Errorf("same ref instance must compare equal")
	}
}

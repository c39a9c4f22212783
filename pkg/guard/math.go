package guard

// Unsigned is the set of integer types balances are kept in.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// CheckedAdd returns a+b, or ErrArithmeticOverflow when the sum wraps.
func CheckedAdd[T Unsigned](a, b T) (T, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b, or ErrArithmeticOverflow when b > a.
func CheckedSub[T Unsigned](a, b T) (T, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

// CheckedMul returns a*b, or ErrArithmeticOverflow when the product wraps.
func CheckedMul[T Unsigned](a, b T) (T, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a {
		return 0, ErrArithmeticOverflow
	}
	return product, nil
}

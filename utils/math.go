package utils

func SQ(x float64) float64 {
	return x * x
}

func SIGN(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

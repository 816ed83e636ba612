package shazam

import "math"

// FFT computes the discrete Fourier transform of a real-valued signal
// using the recursive Cooley-Tukey radix-2 algorithm. len(input) must be
// a power of 2, which the spectrogram's window size already guarantees.
func FFT(input []float64) []complex128 {
	complexInput := make([]complex128, len(input))
	for i, v := range input {
		complexInput[i] = complex(v, 0)
	}
	return fftRecursive(complexInput)
}

func fftRecursive(input []complex128) []complex128 {
	n := len(input)
	if n <= 1 {
		return input
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = input[2*i]
		odd[i] = input[2*i+1]
	}

	even = fftRecursive(even)
	odd = fftRecursive(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		angle := -2 * math.Pi * float64(k) / float64(n)
		twiddle := complex(math.Cos(angle), math.Sin(angle))
		result[k] = even[k] + twiddle*odd[k]
		result[k+n/2] = even[k] - twiddle*odd[k]
	}

	return result
}

// SPDX-License-Identifier: MIT
package analysis

import (
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied to the mono frame before the
// transform.
type WindowFunc int

// Available window functions. WindowNone leaves the frame untouched.
const (
	WindowNone WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// ErrWindow is returned when a window function name is not recognised.
var ErrWindow = eris.New("unknown window function")

// String returns the configuration name of the window.
func (w WindowFunc) String() string {
	name, err := windowName(w)
	if err != nil {
		return "unknown"
	}
	return name
}

func windowName(w WindowFunc) (string, error) {
	switch w {
	case WindowNone:
		return "none", nil
	case BartlettHann:
		return "bartletthann", nil
	case Blackman:
		return "blackman", nil
	case BlackmanNuttall:
		return "blackmannuttall", nil
	case Hann:
		return "hann", nil
	case Hamming:
		return "hamming", nil
	case Lanczos:
		return "lanczos", nil
	case Nuttall:
		return "nuttall", nil
	default:
		return "", eris.Wrapf(ErrWindow, "%d", int(w))
	}
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. It
// returns WindowNone and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "none", "rectangular":
		return WindowNone, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return WindowNone, eris.Wrapf(ErrWindow, "'%s'", name)
	}
}

// windowCoefficients returns n coefficients for w, or nil for WindowNone.
func windowCoefficients(w WindowFunc, n int) []float64 {
	if w == WindowNone {
		return nil
	}

	// The gonum window functions scale in place, so start from ones.
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	switch w {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	}
	return coeffs
}

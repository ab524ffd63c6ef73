package transform

import (
	"errors"
	"fmt"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-bss/bss/tensor"
	"github.com/cwbudde/algo-bss/window"
)

var (
	// ErrInvalidFrameSize is returned for a frame size that is not a power
	// of two of at least 2, or a hop outside [1, frameSize).
	ErrInvalidFrameSize = errors.New("transform: invalid frame or hop size")

	// ErrEmptyInput is returned when there is nothing to transform.
	ErrEmptyInput = errors.New("transform: empty input")
)

// olaNormFloor keeps the overlap-add normalization away from zero at the
// window edges.
const olaNormFloor = 1e-10

func isPowerOf2(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

func checkFrame(frameSize, hopSize int) error {
	if frameSize < 2 || !isPowerOf2(frameSize) {
		return fmt.Errorf("%w: frame size must be a power of two >= 2: %d", ErrInvalidFrameSize, frameSize)
	}
	if hopSize < 1 || hopSize >= frameSize {
		return fmt.Errorf("%w: hop size must be in [1, %d): %d", ErrInvalidFrameSize, frameSize, hopSize)
	}
	return nil
}

// Option configures [STFT] and [ISTFT].
type Option func(*config)

type config struct {
	window window.Type
}

// WithWindow selects the analysis and synthesis window. The default is a
// periodic Hann window.
func WithWindow(t window.Type) Option {
	return func(c *config) {
		c.window = t
	}
}

func frameWindow(frameSize int, opts []Option) []float64 {
	cfg := config{window: window.TypeHann}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return window.Generate(cfg.window, frameSize, window.WithPeriodic())
}

// FrameCount returns the number of frames [STFT] produces for length
// samples. The signal is padded with frameSize-hopSize zeros in front so
// that every sample is covered by a nonzero part of some window.
func FrameCount(length, frameSize, hopSize int) int {
	pad := frameSize - hopSize
	return (pad+length-1)/hopSize + 1
}

// STFT returns the spectrogram of the equally long channels with shape
// (channels, frameSize/2+1, frames).
func STFT(channels [][]float64, frameSize, hopSize int, opts ...Option) (*tensor.Complex, error) {
	if err := checkFrame(frameSize, hopSize); err != nil {
		return nil, err
	}
	if len(channels) == 0 || len(channels[0]) == 0 {
		return nil, ErrEmptyInput
	}
	length := len(channels[0])
	for m, ch := range channels {
		if len(ch) != length {
			return nil, fmt.Errorf("%w: channel %d has %d samples, want %d", tensor.ErrShapeMismatch, m, len(ch), length)
		}
	}

	plan, err := algofft.NewPlan64(frameSize)
	if err != nil {
		return nil, fmt.Errorf("transform: failed to create FFT plan: %w", err)
	}

	win := frameWindow(frameSize, opts)
	pad := frameSize - hopSize
	nBins := frameSize/2 + 1
	nFrames := FrameCount(length, frameSize, hopSize)
	spectrum := tensor.NewComplex(len(channels), nBins, nFrames)

	frame := make([]float64, frameSize)
	buf := make([]complex128, frameSize)
	for m, ch := range channels {
		for j := 0; j < nFrames; j++ {
			clear(frame)
			start := j*hopSize - pad
			for k := range frame {
				if t := start + k; t >= 0 && t < length {
					frame[k] = ch[t]
				}
			}
			if err := window.ApplyCoefficientsInPlace(frame, win); err != nil {
				return nil, fmt.Errorf("transform: %w", err)
			}
			for k, v := range frame {
				buf[k] = complex(v, 0)
			}

			if err := plan.Forward(buf, buf); err != nil {
				return nil, fmt.Errorf("transform: forward FFT failed: %w", err)
			}
			for i := 0; i < nBins; i++ {
				spectrum.Set(buf[i], m, i, j)
			}
		}
	}
	return spectrum, nil
}

// ISTFT inverts [STFT] and returns length samples per channel.
func ISTFT(spectrum *tensor.Complex, frameSize, hopSize, length int, opts ...Option) ([][]float64, error) {
	if err := checkFrame(frameSize, hopSize); err != nil {
		return nil, err
	}
	if len(spectrum.Shape) != 3 {
		return nil, fmt.Errorf("%w: spectrogram must have 3 axes, got %v", tensor.ErrShapeMismatch, spectrum.Shape)
	}
	nM, nBins, nFrames := spectrum.Shape[0], spectrum.Shape[1], spectrum.Shape[2]
	if nBins != frameSize/2+1 {
		return nil, fmt.Errorf("%w: %d bins for frame size %d", tensor.ErrShapeMismatch, nBins, frameSize)
	}
	if nM == 0 || nFrames == 0 || length <= 0 {
		return nil, ErrEmptyInput
	}

	plan, err := algofft.NewPlan64(frameSize)
	if err != nil {
		return nil, fmt.Errorf("transform: failed to create FFT plan: %w", err)
	}

	win := frameWindow(frameSize, opts)
	pad := frameSize - hopSize
	total := (nFrames-1)*hopSize + frameSize

	norm := make([]float64, total)
	sq := make([]float64, frameSize)
	vecmath.MulBlock(sq, win, win)
	for j := 0; j < nFrames; j++ {
		vecmath.AddBlockInPlace(norm[j*hopSize:j*hopSize+frameSize], sq)
	}

	out := make([][]float64, nM)
	buf := make([]complex128, frameSize)
	timeBuf := make([]complex128, frameSize)
	frame := make([]float64, frameSize)
	acc := make([]float64, total)
	for m := range out {
		clear(acc)
		for j := 0; j < nFrames; j++ {
			for i := 0; i < nBins; i++ {
				buf[i] = spectrum.At(m, i, j)
			}
			for i := nBins; i < frameSize; i++ {
				buf[i] = cmplx.Conj(buf[frameSize-i])
			}

			if err := plan.Inverse(timeBuf, buf); err != nil {
				return nil, fmt.Errorf("transform: inverse FFT failed: %w", err)
			}
			for k, v := range timeBuf {
				frame[k] = real(v)
			}
			if err := window.ApplyCoefficientsInPlace(frame, win); err != nil {
				return nil, fmt.Errorf("transform: %w", err)
			}
			vecmath.AddBlockInPlace(acc[j*hopSize:j*hopSize+frameSize], frame)
		}

		ch := make([]float64, length)
		for t := range ch {
			idx := t + pad
			if idx >= total {
				break
			}
			if norm[idx] > olaNormFloor {
				ch[t] = acc[idx] / norm[idx]
			}
		}
		out[m] = ch
	}
	return out, nil
}

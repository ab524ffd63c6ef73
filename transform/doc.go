// Package transform converts multichannel signals to and from the
// time-frequency domain used by the separators, and whitens spectrograms.
//
// [STFT] and [ISTFT] use a periodic window, Hann unless [WithWindow] selects
// another one, with weighted overlap-add synthesis, so ISTFT(STFT(x))
// reproduces x for every hop size smaller than the frame. Spectrograms have shape (channels, bins, frames) with
// frameSize/2+1 bins.
package transform

// Command bsssep separates a synthetic two-channel instantaneous mixture
// with ILRMA and reports how well each estimate matches a source.
//
// Usage:
//
//	bsssep [flags]
//
// Examples:
//
//	bsssep
//	bsssep -alg ISS2 -dist t -nu 2 -iter 100
//	bsssep -dist ggd -beta 1 -domain 1 -align -v
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/cwbudde/algo-bss/bss/ilrma"
	"github.com/cwbudde/algo-bss/bss/nmf"
	"github.com/cwbudde/algo-bss/bss/spatial"
	"github.com/cwbudde/algo-bss/transform"
	"github.com/cwbudde/algo-bss/window"
)

type options struct {
	seconds    float64
	sampleRate float64
	frameSize  int
	hopSize    int
	window     string
	nIter      int
	nBasis     int
	alg        string
	dist       string
	nu         float64
	beta       float64
	domain     float64
	seed       uint64
	align      bool
	progress   bool
	verbose    bool
}

func main() {
	var o options
	flag.Float64Var(&o.seconds, "seconds", 4, "length of the synthetic mixture in seconds")
	flag.Float64Var(&o.sampleRate, "rate", 16000, "sample rate in Hz")
	flag.IntVar(&o.frameSize, "frame", 1024, "STFT frame size (power of two)")
	flag.IntVar(&o.hopSize, "hop", 256, "STFT hop size")
	flag.StringVar(&o.window, "window", "hann", "STFT window: hann, hamming, blackman, rectangular")
	flag.IntVar(&o.nIter, "iter", 50, "number of iterations")
	flag.IntVar(&o.nBasis, "basis", 4, "NMF components per source")
	flag.StringVar(&o.alg, "alg", "IP1", "spatial update: IP, IP1, IP2, ISS, ISS1, ISS2")
	flag.StringVar(&o.dist, "dist", "gauss", "source model: gauss, t, ggd")
	flag.Float64Var(&o.nu, "nu", 1, "degrees of freedom of the t model")
	flag.Float64Var(&o.beta, "beta", 1, "shape of the ggd model, in (0, 2)")
	flag.Float64Var(&o.domain, "domain", 2, "NMF domain, 1 (amplitude) to 2 (power)")
	flag.Uint64Var(&o.seed, "seed", 42, "seed for synthesis and initialization")
	flag.BoolVar(&o.align, "align", false, "align permutations across bins after separation")
	flag.BoolVar(&o.progress, "progress", true, "show a progress bar")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bsssep [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Separates a synthetic two-source mixture with ILRMA.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if o.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(o, log); err != nil {
		log.WithError(err).Error("separation failed")
		os.Exit(1)
	}
}

func parseDistribution(name string, nu, beta float64) (nmf.Distribution, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gauss", "gaussian":
		return nmf.Gauss(), nil
	case "t", "student-t":
		return nmf.T(nu), nil
	case "ggd":
		return nmf.GGD(beta), nil
	default:
		return nmf.Distribution{}, fmt.Errorf("unknown source model %q", name)
	}
}

func run(o options, log *logrus.Logger) error {
	alg, err := spatial.ParseAlgorithm(o.alg)
	if err != nil {
		return err
	}
	dist, err := parseDistribution(o.dist, o.nu, o.beta)
	if err != nil {
		return err
	}
	win, err := window.ParseType(o.window)
	if err != nil {
		return err
	}

	length := int(o.seconds * o.sampleRate)
	sc := synthesize(o.seed, length, o.sampleRate)
	log.WithFields(logrus.Fields{
		"samples":  length,
		"channels": len(sc.mixture),
	}).Info("synthesized mixture")

	spectrum, err := transform.STFT(sc.mixture, o.frameSize, o.hopSize, transform.WithWindow(win))
	if err != nil {
		return err
	}

	opts := []ilrma.Option{
		ilrma.WithSpatialAlgorithm(alg),
		ilrma.WithDomain(o.domain),
		ilrma.WithRand(rand.New(rand.NewPCG(o.seed, o.seed))),
		ilrma.WithPermutationAlignment(o.align),
		ilrma.WithLogger(log),
	}

	var (
		progress *mpb.Progress
		bar      *mpb.Bar
	)
	if o.progress {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar = progress.AddBar(int64(o.nIter+1),
			mpb.PrependDecorators(
				decor.Name("Separating: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
			),
		)
		last := time.Now()
		opts = append(opts, ilrma.WithCallbacks(func(*ilrma.Separator) error {
			bar.EwmaIncrement(time.Since(last))
			last = time.Now()
			return nil
		}))
	}
	finish := func() {
		if progress == nil {
			return
		}
		if !bar.Completed() {
			bar.Abort(false)
		}
		progress.Wait()
	}

	sep, err := ilrma.New(o.nBasis, dist, opts...)
	if err != nil {
		finish()
		return err
	}
	est, err := sep.Separate(spectrum, o.nIter, ilrma.Overrides{})
	finish()
	if err != nil {
		return err
	}
	if losses := sep.Losses(); len(losses) > 0 {
		log.WithFields(logrus.Fields{
			"initial": losses[0],
			"final":   losses[len(losses)-1],
		}).Info("separation finished")
	}

	estimates, err := transform.ISTFT(est, o.frameSize, o.hopSize, length, transform.WithWindow(win))
	if err != nil {
		return err
	}

	return report(os.Stdout, estimates, sc.images)
}

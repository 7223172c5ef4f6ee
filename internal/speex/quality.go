package speex

// Quality bounds accepted by New.
const (
	QualityMin     = 0
	QualityMax     = 10
	QualityDefault = 4
	QualityDesktop = 5
	QualityVoIP    = 3
)

// Kaiser β values of the four speex windows. The speex tables named
// kaiser6..kaiser12 are samples of these windows.
const (
	kaiser6  = 6.0
	kaiser8  = 8.0
	kaiser10 = 10.0
	kaiser12 = 12.0
)

// qualityParams configures the sinc filter for one quality level.
type qualityParams struct {
	baseLength     int     // taps before scaling for downsampling
	oversample     int     // table oversampling in interpolated mode
	downsampleBand float64 // cutoff relative to output Nyquist
	upsampleBand   float64 // cutoff relative to input Nyquist
	windowBeta     float64
}

var qualityTable = [QualityMax + 1]qualityParams{
	{8, 4, 0.830, 0.860, kaiser6},
	{16, 4, 0.850, 0.880, kaiser6},
	{32, 4, 0.882, 0.910, kaiser6},
	{48, 8, 0.895, 0.917, kaiser8},
	{64, 8, 0.921, 0.940, kaiser8},
	{80, 16, 0.922, 0.940, kaiser10},
	{96, 16, 0.940, 0.945, kaiser10},
	{128, 16, 0.950, 0.950, kaiser10},
	{160, 16, 0.960, 0.960, kaiser10},
	{192, 32, 0.968, 0.968, kaiser12},
	{256, 32, 0.975, 0.975, kaiser12},
}

package distiller

// Config holds the per-mode caps and the geometry constants. RowTolerance is
// the vertical distance under which two elements share a row, ViewportBuffer
// extends the viewport on every side for the visibility test.
type Config struct {
	TextCap        int
	InputCap       int
	InteractiveCap int
	RowTolerance   float64
	ViewportBuffer float64
	TextLimit      int
	TokenFactor    float64

	AutoMinInputs    int
	AutoMinTextChars int
	AutoMaxTextLinks int
}

func DefaultConfig() Config {
	return Config{
		TextCap:          500,
		InputCap:         200,
		InteractiveCap:   300,
		RowTolerance:     20,
		ViewportBuffer:   500,
		TextLimit:        200,
		TokenFactor:      0.25,
		AutoMinInputs:    3,
		AutoMinTextChars: 3000,
		AutoMaxTextLinks: 30,
	}
}

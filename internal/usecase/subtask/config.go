package subtask

type Config struct {
	MaxSteps               int
	MaxConsecutiveFailures int
	MaxStagnantSteps       int
	DuplicateWindow        int
	BudgetWarningRatio     float64
	FingerprintElements    int
	FingerprintTextLen     int
	FallbackWaitMs         int
}

func DefaultConfig() Config {
	return Config{
		MaxSteps:               15,
		MaxConsecutiveFailures: 3,
		MaxStagnantSteps:       4,
		DuplicateWindow:        3,
		BudgetWarningRatio:     0.75,
		FingerprintElements:    10,
		FingerprintTextLen:     30,
		FallbackWaitMs:         1000,
	}
}

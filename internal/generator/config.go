package generator

// Config drives the synthetic data generator.
type Config struct {
	NumUsers int
	// MaxApplicationsPerUser bounds the random candidacies each user files.
	MaxApplicationsPerUser int
	// Rings is the number of interlocking chains planted on top of the random applications.
	Rings int
	// RingMaxLength is the largest planted ring; ring sizes are drawn from 2..RingMaxLength.
	RingMaxLength      int
	NullPriorityChance float64
	MissingNameChance  float64
	InactiveChance     float64
	Seed               int64
}

// DefaultConfig returns baseline settings for a small demo dataset.
func DefaultConfig() Config {
	return Config{
		NumUsers:               200,
		MaxApplicationsPerUser: 3,
		Rings:                  10,
		RingMaxLength:          6,
		NullPriorityChance:     0.05,
		MissingNameChance:      0.1,
		InactiveChance:         0.2,
		Seed:                   42,
	}
}

package quality

// Applier receives the settings of a newly committed tier and applies
// them to the governed system. Apply is called synchronously, at most
// once per committed transition, with the full settings mapping of the
// new tier. Apply runs under the controller's state lock; implementations
// must not call back into the controller.
type Applier interface {
	Apply(tier Tier, settings Settings)
}

// ApplierFunc adapts a function to the Applier interface
type ApplierFunc func(tier Tier, settings Settings)

func (f ApplierFunc) Apply(tier Tier, settings Settings) {
	f(tier, settings)
}

// RateSource provides windowed throughput readings to the controller.
// History returns the bounded reading history, oldest first.
type RateSource interface {
	CurrentRate() int
	History() []int
}

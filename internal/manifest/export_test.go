package manifest

// Quote exports quote for testing.
var Quote = quote

// Prober exports prober interface for testing.
type Prober = prober

package activitymap

// WithClock exposes the normalization clock to tests.
var WithClock = withClock

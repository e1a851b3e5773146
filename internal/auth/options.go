package auth

import "time"

type options struct {
	now      func() time.Time
	denylist Denylist
}

// Option customizes an Issuer or a Gate.
type Option func(*options)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithDenylist makes the Gate reject tokens whose ID has been revoked.
func WithDenylist(d Denylist) Option {
	return func(o *options) {
		o.denylist = d
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

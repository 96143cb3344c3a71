package distancefield

import "go.viam.com/collisiondistance/collision"

// options configures a CollisionRobot.
type options struct {
	metrics *Metrics
	acm     *collision.AllowedCollisionMatrix
}

// Option configures how a CollisionRobot is set up.
// Cribbed from https://github.com/grpc/grpc-go/blob/aff571cc86e6e7e740130dbbb32a9741558db805/dialoptions.go#L41
type Option interface {
	apply(*options)
}

// funcOption wraps a function that modifies options into an
// implementation of the Option interface.
type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithMetrics returns an Option which records construction and queries in m.
func WithMetrics(m *Metrics) Option {
	return newFuncOption(func(o *options) {
		o.metrics = m
	})
}

// WithAllowedCollisionMatrix returns an Option which replaces the matrix derived from the model.
func WithAllowedCollisionMatrix(acm *collision.AllowedCollisionMatrix) Option {
	return newFuncOption(func(o *options) {
		o.acm = acm
	})
}

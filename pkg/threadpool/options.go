package threadpool

import "github.com/fluxorio/threadpool/pkg/transport"

// Option customizes a Pool at construction time.
type Option func(*Pool)

// WithLogger sets the pool's logger. The default discards everything;
// NewDefaultLogger or a *logrus.Logger are drop-in choices. A nil logger is
// ignored.
func WithLogger(log Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

// WithTransport runs the pool over tr instead of a private in-memory queue.
// The caller keeps ownership: Close joins the workers but leaves tr open for
// other users of the queue.
func WithTransport(tr transport.Transport) Option {
	return func(p *Pool) {
		if tr != nil {
			p.tr = tr
			p.ownsTransport = false
		}
	}
}

// WithObserver sets the pool's observer. A later WithObserver replaces an
// earlier one; compose with MultiObserver to attach several. A nil observer
// is ignored.
func WithObserver(obs Observer) Option {
	return func(p *Pool) {
		if obs != nil {
			p.obs = obs
		}
	}
}

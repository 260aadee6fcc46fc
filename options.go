package swrast

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/swrast/internal/hottile"
)

// ErrInvalidOption is returned by NewContext when an option is out of range.
var ErrInvalidOption = errors.New("swrast: invalid option")

// Option configures a Context during creation.
//
// Example:
//
//	// Four workers, a small ring, stores written back through the driver.
//	ctx, err := swrast.NewContext(
//		swrast.WithWorkers(4),
//		swrast.WithMaxDrawsInFlight(16),
//		swrast.WithTileCallbacks(swrast.TileCallbacks{Store: storeTile}),
//	)
type Option func(*options)

// DriverType selects the convention of the default viewport transform.
type DriverType uint8

const (
	// DriverDX maps viewport depth [MinZ, MaxZ] from NDC [0, 1].
	DriverDX DriverType = iota
	// DriverGL maps viewport depth from NDC [-1, 1].
	DriverGL
)

func (d DriverType) String() string {
	switch d {
	case DriverDX:
		return "DX"
	case DriverGL:
		return "GL"
	default:
		return fmt.Sprintf("DriverType(%d)", uint8(d))
	}
}

const (
	defaultMaxDrawsInFlight    = 96
	defaultMaxPrimsPerDraw     = 2040
	defaultMaxTessPrimsPerDraw = 16
	maxWorkers                 = 256
)

type options struct {
	workers             int
	singleThreaded      bool
	maxDrawsInFlight    int
	maxPrimsPerDraw     uint32
	maxTessPrimsPerDraw uint32
	privateStateSize    int
	driver              DriverType
	callbacks           hottile.Callbacks
	selector            BackendSelector
	logger              *slog.Logger
}

func defaultOptions() options {
	return options{
		maxDrawsInFlight:    defaultMaxDrawsInFlight,
		maxPrimsPerDraw:     defaultMaxPrimsPerDraw,
		maxTessPrimsPerDraw: defaultMaxTessPrimsPerDraw,
		driver:              DriverDX,
	}
}

func (o *options) validate() error {
	var errs []error
	if o.maxDrawsInFlight < 2 {
		errs = append(errs, fmt.Errorf("%w: max draws in flight %d, need at least 2", ErrInvalidOption, o.maxDrawsInFlight))
	}
	if o.maxPrimsPerDraw < 3 {
		errs = append(errs, fmt.Errorf("%w: max prims per draw %d, need at least 3", ErrInvalidOption, o.maxPrimsPerDraw))
	}
	if o.maxTessPrimsPerDraw == 0 {
		errs = append(errs, fmt.Errorf("%w: max tessellated prims per draw is 0", ErrInvalidOption))
	}
	if o.privateStateSize < 0 {
		errs = append(errs, fmt.Errorf("%w: private state size %d", ErrInvalidOption, o.privateStateSize))
	}
	if o.driver != DriverDX && o.driver != DriverGL {
		errs = append(errs, fmt.Errorf("%w: driver %v", ErrInvalidOption, o.driver))
	}
	return errors.Join(errs...)
}

// WithWorkers sets the number of worker goroutines. Zero or a negative value
// uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSingleThreaded runs all front-end and back-end work inline on the
// goroutine that submits it, as worker 0. Useful for debugging and for
// deterministic tests.
func WithSingleThreaded() Option {
	return func(o *options) {
		o.singleThreaded = true
	}
}

// WithMaxDrawsInFlight sets the capacity of the draw context ring. The API
// goroutine blocks once it is this many draws ahead of retirement.
func WithMaxDrawsInFlight(n int) Option {
	return func(o *options) {
		o.maxDrawsInFlight = n
	}
}

// WithMaxPrimsPerDraw sets how many vertices of a point or triangle list one
// draw context processes before the draw is split.
func WithMaxPrimsPerDraw(n uint32) Option {
	return func(o *options) {
		o.maxPrimsPerDraw = n
	}
}

// WithMaxTessPrimsPerDraw sets how many patches of a tessellated draw one
// draw context processes before the draw is split.
func WithMaxTessPrimsPerDraw(n uint32) Option {
	return func(o *options) {
		o.maxTessPrimsPerDraw = n
	}
}

// WithPrivateStateSize sets the size of the per-draw private state returned
// by PrivateContextState.
func WithPrivateStateSize(n int) Option {
	return func(o *options) {
		o.privateStateSize = n
	}
}

// WithDriver selects the default viewport transform convention.
func WithDriver(d DriverType) Option {
	return func(o *options) {
		o.driver = d
	}
}

// WithTileCallbacks installs the driver's hot tile load, store and clear
// callbacks.
func WithTileCallbacks(cb TileCallbacks) Option {
	return func(o *options) {
		o.callbacks = cb
	}
}

// WithBackendSelector replaces the function that picks the back end of a
// draw with a pixel shader. Draws without a pixel shader always use the
// built-in depth-only back end.
func WithBackendSelector(s BackendSelector) Option {
	return func(o *options) {
		o.selector = s
	}
}

// WithLogger sets the logger of the context, overriding the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

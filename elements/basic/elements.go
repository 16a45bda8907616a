package basic

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
)

// CounterConfig holds configuration for a Counter.
type CounterConfig struct {
	Start int `json:"start"`
	Step  int `json:"step"`
	Count int `json:"count"`
}

// Validate checks the configuration for errors
func (c *CounterConfig) Validate() error {
	if c.Count < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "CounterConfig", "Validate", "count must be at least 1")
	}
	return nil
}

// DefaultCounterConfig returns the default Counter configuration.
func DefaultCounterConfig() CounterConfig {
	return CounterConfig{Start: 0, Step: 1, Count: 10}
}

// Counter emits count ints starting at start.
type Counter struct {
	next      int
	step      int
	remaining int
}

// NewCounter creates a Counter from its node entry.
func NewCounter(cfg config.Tree) (*Counter, error) {
	c := DefaultCounterConfig()
	if err := decode(cfg, &c, "NewCounter"); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Counter{next: c.Start, step: c.Step, remaining: c.Count}, nil
}

func (c *Counter) Process() int {
	v := c.next
	c.next += c.step
	c.remaining--
	return v
}

func (c *Counter) IsStopped() bool { return c.remaining <= 0 }

func (*Counter) Describe() []string {
	return []string{
		"Emits count integers starting at start, step apart.",
		"fields: start (0), step (1), count (10)",
	}
}

// Identity forwards ints unchanged.
type Identity struct{}

// NewIdentity creates an Identity.
func NewIdentity(config.Tree) (Identity, error) { return Identity{}, nil }

func (Identity) Process(v int) int { return v }

func (Identity) Describe() []string { return []string{"Forwards integers unchanged."} }

// Divide turns ints into floats by dividing by divisor.
type Divide struct {
	divisor float64
}

// NewDivide creates a Divide. The divisor defaults to 1 and must not be 0.
func NewDivide(cfg config.Tree) (*Divide, error) {
	d := cfg.Float64("divisor", 1)
	if d == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Divide", "NewDivide", "divisor must not be 0")
	}
	return &Divide{divisor: d}, nil
}

func (d *Divide) Process(v int) float64 { return float64(v) / d.divisor }

func (*Divide) Describe() []string {
	return []string{"Divides an integer, producing a float.", "fields: divisor (1)"}
}

// Scale multiplies floats by factor.
type Scale struct {
	factor float64
}

// NewScale creates a Scale.
func NewScale(cfg config.Tree) (*Scale, error) {
	return &Scale{factor: cfg.Float64("factor", 1)}, nil
}

func (s *Scale) Process(v float64) float64 { return v * s.factor }

// Sum adds an int and a float.
type Sum struct{}

// NewSum creates a Sum.
func NewSum(config.Tree) (Sum, error) { return Sum{}, nil }

func (Sum) Process(a int, b float64) float64 { return float64(a) + b }

func (Sum) Describe() []string {
	return []string{"Adds an integer and a float.", "As a join its input is the tuple (int, float64)."}
}

// Add adds two floats.
type Add struct{}

// NewAdd creates an Add.
func NewAdd(config.Tree) (Add, error) { return Add{}, nil }

func (Add) Process(a, b float64) float64 { return a + b }

// Parity routes even ints to its first port and odd ints to its second.
type Parity struct{}

// NewParity creates a Parity.
func NewParity(config.Tree) (Parity, error) { return Parity{}, nil }

func (Parity) Process(v int) (element.Optional[int], element.Optional[int]) {
	if v%2 == 0 {
		return element.Some(v), element.None[int]()
	}
	return element.None[int](), element.Some(v)
}

func (Parity) Describe() []string {
	return []string{"Routes even integers to output 0 and odd integers to output 1."}
}

// Fork duplicates an int; its output tuple types split nodes.
type Fork struct{}

// NewFork creates a Fork.
func NewFork(config.Tree) (Fork, error) { return Fork{}, nil }

func (Fork) Process(v int) (int, int) { return v, v }

// Format renders floats with a fmt verb.
type Format struct {
	format string
}

// NewFormat creates a Format. The format defaults to "%g".
func NewFormat(cfg config.Tree) (*Format, error) {
	return &Format{format: cfg.String("format", "%g")}, nil
}

func (f *Format) Process(v float64) string { return fmt.Sprintf(f.format, v) }

// Printer writes one line per value.
type Printer[T any] struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
}

// NewPrinter creates a Printer writing to the file at path, or to stdout when
// path is empty or "-". Files are opened for append.
func NewPrinter[T any](cfg config.Tree) (*Printer[T], error) {
	p := &Printer[T]{out: os.Stdout, prefix: cfg.String("prefix", "")}
	path := cfg.String("path", "-")
	if path == "" || path == "-" {
		return p, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Printer", "NewPrinter", fmt.Sprintf("open %s", path))
	}
	p.out = f
	return p, nil
}

func (p *Printer[T]) Process(v T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "%s%v\n", p.prefix, v)
	return err
}

func (*Printer[T]) Describe() []string {
	var zero T
	return []string{fmt.Sprintf("Writes each %T value on its own line.", zero), "fields: path (\"-\"), prefix"}
}

// Beat counts the signals it receives.
type Beat struct {
	beats atomic.Int64
}

// NewBeat creates a Beat.
func NewBeat(config.Tree) (*Beat, error) { return &Beat{}, nil }

func (b *Beat) Process() { b.beats.Add(1) }

// Beats returns the number of signals seen.
func (b *Beat) Beats() int64 { return b.beats.Load() }

func decode(cfg config.Tree, v any, method string) error {
	if len(cfg) == 0 {
		return nil
	}
	if err := cfg.Decode(v); err != nil {
		return errors.Wrap(err, "basic", method, "decode config")
	}
	return nil
}

package basic

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/view"
)

// JSONLinesConfig holds configuration for the JSONLines view.
type JSONLinesConfig struct {
	Source      string   `json:"source"`
	Sink        string   `json:"sink"`
	InputTypes  []string `json:"input_types"`
	OutputTypes []string `json:"output_types"`
}

// DefaultJSONLinesConfig reads stdin and writes stdout.
func DefaultJSONLinesConfig() JSONLinesConfig {
	return JSONLinesConfig{Source: "-", Sink: "-"}
}

// slot is a view slot type that JSON values can be converted to.
type slot struct {
	name string
	typ  flow.Type
}

var slotTypes = map[string]flow.Type{
	"int":     flow.TypeOf[int](),
	"float64": flow.TypeOf[float64](),
	"string":  flow.TypeOf[string](),
	"bool":    flow.TypeOf[bool](),
}

func parseSlots(names []string) ([]slot, error) {
	slots := make([]slot, 0, len(names))
	for _, name := range names {
		t, ok := slotTypes[name]
		if !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: unsupported slot type %q", errors.ErrInvalidConfig, name),
				"JSONLines", "parseSlots", "read slot types")
		}
		slots = append(slots, slot{name: name, typ: t})
	}
	return slots, nil
}

func types(slots []slot) []flow.Type {
	ts := make([]flow.Type, len(slots))
	for i, s := range slots {
		ts[i] = s.typ
	}
	return ts
}

// NewJSONLinesView creates a view driven by a JSONLines handler.
func NewJSONLinesView(cfg config.Tree, g *flow.Graph) (*view.View, error) {
	c := DefaultJSONLinesConfig()
	if err := decode(cfg, &c, "NewJSONLinesView"); err != nil {
		return nil, err
	}
	ins, err := parseSlots(c.InputTypes)
	if err != nil {
		return nil, err
	}
	outs, err := parseSlots(c.OutputTypes)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	r := io.Reader(os.Stdin)
	if c.Source != "" && c.Source != "-" {
		f, err := os.Open(c.Source)
		if err != nil {
			return nil, errors.WrapInvalid(err, "JSONLines", "NewJSONLinesView", fmt.Sprintf("open source %s", c.Source))
		}
		r = f
		closers = append(closers, f)
	}
	w := io.Writer(os.Stdout)
	if c.Sink != "" && c.Sink != "-" {
		f, err := os.Create(c.Sink)
		if err != nil {
			for _, cl := range closers {
				_ = cl.Close()
			}
			return nil, errors.WrapInvalid(err, "JSONLines", "NewJSONLinesView", fmt.Sprintf("create sink %s", c.Sink))
		}
		w = f
		closers = append(closers, f)
	}

	h := newJSONLines(r, w, ins, outs)
	h.closers = closers
	return view.New(g, types(ins), types(outs), h), nil
}

// JSONLines reads output frames from one stream and writes input frames to another.
type JSONLines struct {
	dec     *json.Decoder
	enc     *json.Encoder
	ins     []slot
	outs    []slot
	line    int
	closers []io.Closer
}

// NewJSONLines creates a handler. inputTypes and outputTypes name the slot
// types of the view it drives.
func NewJSONLines(r io.Reader, w io.Writer, inputTypes, outputTypes []string) (*JSONLines, error) {
	ins, err := parseSlots(inputTypes)
	if err != nil {
		return nil, err
	}
	outs, err := parseSlots(outputTypes)
	if err != nil {
		return nil, err
	}
	return newJSONLines(r, w, ins, outs), nil
}

func newJSONLines(r io.Reader, w io.Writer, ins, outs []slot) *JSONLines {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &JSONLines{dec: dec, enc: json.NewEncoder(w), ins: ins, outs: outs}
}

// InputTypes returns the slot types values are collected from.
func (j *JSONLines) InputTypes() []flow.Type { return types(j.ins) }

// OutputTypes returns the slot types values are sent to.
func (j *JSONLines) OutputTypes() []flow.Type { return types(j.outs) }

// Next decodes one array. End of input closes the streams the handler opened.
func (j *JSONLines) Next(context.Context) ([]any, bool, error) {
	var raw []any
	if err := j.dec.Decode(&raw); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, true, j.close()
		}
		return nil, false, errors.WrapInvalid(fmt.Errorf("%w: line %d: %w", errors.ErrParsingFailed, j.line+1, err),
			"JSONLines", "Next", "decode frame")
	}
	j.line++

	if len(raw) != len(j.outs) {
		return nil, false, errors.WrapInvalid(
			fmt.Errorf("%w: line %d has %d values, want %d", errors.ErrTypeMismatch, j.line, len(raw), len(j.outs)),
			"JSONLines", "Next", "check frame")
	}
	values := make([]any, len(raw))
	for i, v := range raw {
		converted, err := convert(v, j.outs[i].name)
		if err != nil {
			return nil, false, errors.WrapInvalid(fmt.Errorf("%w: line %d slot %d: %w", errors.ErrTypeMismatch, j.line, i, err),
				"JSONLines", "Next", "convert value")
		}
		values[i] = converted
	}
	return values, false, nil
}

// Handle writes one array holding the list of values of every input slot.
func (j *JSONLines) Handle(_ context.Context, frame view.Frame) error {
	row := make([][]any, len(frame.Values))
	for i, values := range frame.Values {
		row[i] = append([]any{}, values...)
	}
	if err := j.enc.Encode(row); err != nil {
		return errors.WrapTransient(err, "JSONLines", "Handle", "write frame")
	}
	return nil
}

func (j *JSONLines) close() error {
	var errs []error
	for _, c := range j.closers {
		errs = append(errs, c.Close())
	}
	j.closers = nil
	return stderrors.Join(errs...)
}

// convert turns a decoded JSON value into the slot type. nil stays nil.
func convert(v any, name string) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch name {
	case "int":
		n, ok := v.(json.Number)
		if !ok {
			break
		}
		i, err := n.Int64()
		if err != nil {
			return nil, err
		}
		return int(i), nil
	case "float64":
		n, ok := v.(json.Number)
		if !ok {
			break
		}
		return n.Float64()
	case "string":
		if s, ok := v.(string); ok {
			return s, nil
		}
	case "bool":
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%v is not a %s", v, name)
}

package harness

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/bondlegend4/modelica-gdext/internal/ident"
	"github.com/bondlegend4/modelica-gdext/internal/testutil"
)

// Operations.
const (
	OpEqual        = "equal"
	OpNotEqual     = "not_equal"
	OpLen          = "len"
	OpIsEmpty      = "is_empty"
	OpToString     = "to_string"
	OpToNodePath   = "to_node_path"
	OpToName       = "to_name"
	OpFromCStr     = "from_cstr"
	OpStatic       = "static"
	OpSubpath      = "subpath"
	OpGetName      = "get_name"
	OpGetSubname   = "get_subname"
	OpNameCount    = "name_count"
	OpSubnameCount = "subname_count"
	OpHashSetSize  = "hash_set_size"
	OpTransientOrd = "transient_ord"
)

type opSpec struct {
	types []string // empty means every type
	args  int      // -1 means any number
	fn    func(h *Harness, subject value, c Case) (any, error)
}

func (s opSpec) supports(typ string) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, t := range s.types {
		if t == typ {
			return true
		}
	}
	return false
}

var (
	allTypes  []string
	textTypes = []string{TypeName, TypeString}
	pathOnly  = []string{TypeNodePath}
	nameOnly  = []string{TypeName}
)

var ops = map[string]opSpec{
	OpEqual:        {allTypes, 1, opEqual},
	OpNotEqual:     {allTypes, 1, opNotEqual},
	OpLen:          {textTypes, 0, opLen},
	OpIsEmpty:      {allTypes, 0, opIsEmpty},
	OpToString:     {allTypes, 0, opToString},
	OpToNodePath:   {allTypes, 0, opToNodePath},
	OpToName:       {allTypes, 0, opToName},
	OpFromCStr:     {nameOnly, 0, opFromCStr},
	OpStatic:       {nameOnly, 0, opStatic},
	OpSubpath:      {pathOnly, 2, opSubpath},
	OpGetName:      {pathOnly, 1, opGetName},
	OpGetSubname:   {pathOnly, 1, opGetSubname},
	OpNameCount:    {pathOnly, 0, opNameCount},
	OpSubnameCount: {pathOnly, 0, opSubnameCount},
	OpHashSetSize:  {allTypes, -1, opHashSetSize},
	OpTransientOrd: {nameOnly, 1, opTransientOrd},
}

// Harness executes scenario cases against one string context.
type Harness struct {
	typ   string
	ctx   *ident.Context
	clock *testutil.DeterministicClock
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh ident.Context so static tables and bounds
// policy do not leak between scenarios. Mismatches are reported in the
// result; an error is returned only for a malformed scenario.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		typ: scenario.Type,
		ctx: ident.NewContext(ident.Config{
			StrictBounds: scenario.StrictBounds,
			Logger:       logger,
		}),
		clock: testutil.NewDeterministicClock(),
	}
	defer h.ctx.Close()

	runID := testutil.NewFixedRunIDGenerator(scenario.RunID).Generate()
	result := NewResult(runID)

	for i, c := range scenario.Cases {
		event, err := h.runCase(c)
		if err != nil {
			return nil, fmt.Errorf("cases[%d] %s: %w", i, c.Op, err)
		}
		result.Trace = append(result.Trace, event)

		if msg := checkCase(c, event); msg != "" {
			result.AddError(fmt.Sprintf("cases[%d] %s(%q): %s", i, c.Op, c.Input, msg))
		}
	}
	return result, nil
}

func (h *Harness) runCase(c Case) (event TraceEvent, err error) {
	event = TraceEvent{
		Seq:   h.clock.Next(),
		Op:    c.Op,
		Input: c.Input,
		Args:  c.Args,
	}
	if c.InputHex != "" {
		event.Input = c.InputHex
	}

	subject := newValue(h.typ, c.Input)

	defer func() {
		if r := recover(); r != nil {
			event.Panic = fmt.Sprint(r)
		}
	}()

	res, err := ops[c.Op].fn(h, subject, c)
	if err != nil {
		return event, err
	}
	event.Result = res
	return event, nil
}

func checkCase(c Case, event TraceEvent) string {
	if c.ExpectPanic {
		if event.Panic == "" {
			return fmt.Sprintf("expected panic, got %v", event.Result)
		}
		return ""
	}
	if event.Panic != "" {
		return "unexpected panic: " + event.Panic
	}
	want, got := normalize(c.Expect), normalize(event.Result)
	if !reflect.DeepEqual(want, got) {
		return fmt.Sprintf("expected %v, got %v", want, got)
	}
	return ""
}

// normalize maps YAML-decoded and op-produced values onto one set of types.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int64:
		return x
	case uint64:
		return int64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// value is a case subject: exactly one field is meaningful, chosen by typ.
type value struct {
	typ  string
	name ident.Name
	str  ident.String
	path ident.NodePath
}

func newValue(typ, text string) value {
	v := value{typ: typ}
	switch typ {
	case TypeName:
		v.name = ident.NewName(text)
	case TypeString:
		v.str = ident.NewString(text)
	case TypeNodePath:
		v.path = ident.NewNodePath(text)
	}
	return v
}

func (v value) text() string {
	switch v.typ {
	case TypeName:
		return v.name.String()
	case TypeString:
		return v.str.String()
	default:
		return v.path.String()
	}
}

func argString(c Case, i int) (string, error) {
	s, ok := c.Args[i].(string)
	if !ok {
		return "", fmt.Errorf("args[%d] must be a string, got %T", i, c.Args[i])
	}
	return s, nil
}

func argInt(c Case, i int) (int, error) {
	n, ok := c.Args[i].(int)
	if !ok {
		return 0, fmt.Errorf("args[%d] must be an integer, got %T", i, c.Args[i])
	}
	return n, nil
}

func opEqual(h *Harness, subject value, c Case) (any, error) {
	other, err := argString(c, 0)
	if err != nil {
		return nil, err
	}
	return subject == newValue(h.typ, other), nil
}

func opNotEqual(h *Harness, subject value, c Case) (any, error) {
	eq, err := opEqual(h, subject, c)
	if err != nil {
		return nil, err
	}
	return !eq.(bool), nil
}

func opLen(h *Harness, subject value, c Case) (any, error) {
	if subject.typ == TypeName {
		return subject.name.Len(), nil
	}
	return subject.str.Len(), nil
}

func opIsEmpty(h *Harness, subject value, c Case) (any, error) {
	switch subject.typ {
	case TypeName:
		return subject.name.IsEmpty(), nil
	case TypeString:
		return subject.str.IsEmpty(), nil
	default:
		return subject.path.IsEmpty(), nil
	}
}

func opToString(h *Harness, subject value, c Case) (any, error) {
	switch subject.typ {
	case TypeName:
		return subject.name.ToString().String(), nil
	case TypeNodePath:
		return subject.path.ToString().String(), nil
	default:
		return subject.str.String(), nil
	}
}

func opToNodePath(h *Harness, subject value, c Case) (any, error) {
	switch subject.typ {
	case TypeName:
		return subject.name.ToNodePath().String(), nil
	case TypeString:
		return subject.str.ToNodePath().String(), nil
	default:
		return subject.path.String(), nil
	}
}

func opToName(h *Harness, subject value, c Case) (any, error) {
	switch subject.typ {
	case TypeString:
		return subject.str.ToName().String(), nil
	case TypeNodePath:
		return subject.path.ToName().String(), nil
	default:
		return subject.name.String(), nil
	}
}

func opFromCStr(h *Harness, subject value, c Case) (any, error) {
	raw, err := hex.DecodeString(c.InputHex)
	if err != nil {
		return nil, fmt.Errorf("input_hex: %w", err)
	}
	return ident.NameFromCStr(raw).String(), nil
}

// opStatic interns the input twice and checks both lookups agree with a
// freshly built Name.
func opStatic(h *Harness, subject value, c Case) (any, error) {
	first := h.ctx.StaticString(c.Input)
	second := h.ctx.StaticString(c.Input)
	if first != second || first != subject.name {
		return nil, fmt.Errorf("static lookup of %q is not canonical", c.Input)
	}
	return first.String(), nil
}

func opSubpath(h *Harness, subject value, c Case) (any, error) {
	begin, err := argInt(c, 0)
	if err != nil {
		return nil, err
	}
	end, err := argInt(c, 1)
	if err != nil {
		return nil, err
	}
	return subject.path.Subpath(begin, end).String(), nil
}

func opGetName(h *Harness, subject value, c Case) (any, error) {
	i, err := argInt(c, 0)
	if err != nil {
		return nil, err
	}
	return h.ctx.GetName(subject.path, i).String(), nil
}

func opGetSubname(h *Harness, subject value, c Case) (any, error) {
	i, err := argInt(c, 0)
	if err != nil {
		return nil, err
	}
	return h.ctx.GetSubname(subject.path, i).String(), nil
}

func opNameCount(h *Harness, subject value, c Case) (any, error) {
	return subject.path.NameCount(), nil
}

func opSubnameCount(h *Harness, subject value, c Case) (any, error) {
	return subject.path.SubnameCount(), nil
}

// opHashSetSize inserts the input and every arg into a set and reports its
// size. Each value is also rebuilt from a NUL-terminated source and as a
// Name of the same content; both must agree with it on equality and hash.
func opHashSetSize(h *Harness, subject value, c Case) (any, error) {
	texts := []string{c.Input}
	for i := range c.Args {
		text, err := argString(c, i)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}

	set := map[value]struct{}{}
	for _, text := range texts {
		v := newValue(h.typ, text)
		if err := checkHashCoherence(h.typ, text, v); err != nil {
			return nil, err
		}
		set[v] = struct{}{}
	}
	return len(set), nil
}

func checkHashCoherence(typ, text string, v value) error {
	truncated := newValue(typ, text+"\x00tail")
	if truncated != v {
		return fmt.Errorf("%q and %q+NUL are not equal", text, text)
	}
	if truncated.hash() != v.hash() {
		return fmt.Errorf("%q and %q+NUL hash differently", text, text)
	}
	if ident.NewName(v.text()).Hash() != v.hash() {
		return fmt.Errorf("%q hashes differently from a name with the same content", text)
	}
	return nil
}

func (v value) hash() uint64 {
	switch v.typ {
	case TypeName:
		return v.name.Hash()
	case TypeNodePath:
		return v.path.Hash()
	default:
		return ident.NameFromString(v.str).Hash()
	}
}

// opTransientOrd reports "equal" or "ordered". The direction of an ordered
// pair varies between processes, so only antisymmetry is checked.
func opTransientOrd(h *Harness, subject value, c Case) (any, error) {
	text, err := argString(c, 0)
	if err != nil {
		return nil, err
	}
	a, b := subject.name.TransientOrd(), ident.NewName(text).TransientOrd()
	ab, ba := a.Compare(b), b.Compare(a)
	switch {
	case ab == 0 && ba == 0:
		return "equal", nil
	case ab == -ba:
		return "ordered", nil
	default:
		return nil, fmt.Errorf("transient order of %q and %q is not antisymmetric", c.Input, text)
	}
}

// Package formula implements a bounded temporal assertion language over a
// finite sequence of time-steps.
//
// A Formula is a reified, immutable operator tree. It holds no run-specific
// state: the same formula value can be checked against many independently
// sampled traces by creating one Evaluator per run.
package formula

import (
	"errors"
	"fmt"
	"strings"
)

// Returned when an operator is constructed with an invalid bound or a
// missing sub-formula.
var ErrInvalid = errors.New("formula: invalid operator configuration")

// A Formula over steps of type S.
//
// The operator set is closed: formulas are built with the constructors in
// this package and evaluated step by step by an Evaluator.
type Formula[S any] interface {
	fmt.Stringer

	// The number of steps needed from the start of evaluation to guarantee
	// that the formula resolves to a definite verdict.
	horizon() int
	// Check operator bounds and sub-formulas. Performed before execution so
	// that a misconfigured formula never silently passes.
	validate() error
	// Rewrite the formula against the incoming step, returning the residual
	// obligation. The residual is satisfied (true) or violated (false) as
	// soon as logically determined.
	progress(s S) Formula[S]
}

// Create an atomic formula evaluating pred on the current step.
// The name identifies the atom in falsification reports.
func Atom[S any](name string, pred func(S) bool) Formula[S] {
	return atom[S]{name: name, pred: pred}
}

// Create an atomic formula that projects the current step and evaluates
// pred on the projection.
func At[S, T any](name string, project func(S) T, pred func(T) bool) Formula[S] {
	return atom[S]{name: name, pred: func(s S) bool {
		return pred(project(s))
	}}
}

// Create the conjunction of the provided formulas.
// All branches are progressed eagerly on every step.
func And[S any](fs ...Formula[S]) Formula[S] {
	return and[S]{fs: fs}
}

// Create the disjunction of the provided formulas.
// All branches are progressed eagerly on every step.
func Or[S any](fs ...Formula[S]) Formula[S] {
	return or[S]{fs: fs}
}

// Create a formula requiring f to hold at the next step.
func Next[S any](f Formula[S]) Formula[S] {
	return next[S]{f: f}
}

// Create a formula requiring f to hold at every step in [k, k+during),
// where k is the step at which evaluation starts. during must be at least 1.
func Always[S any](f Formula[S], during int) Formula[S] {
	return always[S]{f: f, n: during}
}

// Create a formula requiring f to hold at some step in [k, k+on],
// where k is the step at which evaluation starts. on may be 0 ("now").
func Later[S any](f Formula[S], on int) Formula[S] {
	l := later[S]{f: f, n: on}
	if f != nil {
		l.label = fmt.Sprintf("later(%v) on %v", f, on)
	}
	return l
}

// Create a formula requiring f to hold at every step from k until the first
// step where g holds, with g occurring at some step in [k, k+on].
//
// If g never holds within the bound the formula is violated; if f is violated
// before g holds the formula is violated. At each step g's satisfaction is
// checked before f's violation, so a step where g holds and f fails
// simultaneously satisfies the formula.
func Until[S any](f, g Formula[S], on int) Formula[S] {
	u := until[S]{f: f, g: g, n: on}
	if f != nil && g != nil {
		u.label = fmt.Sprintf("(%v until %v on %v)", f, g, on)
	}
	return u
}

// Returns the number of steps needed to guarantee that f resolves.
func Horizon[S any](f Formula[S]) int {
	return f.horizon()
}

// Validate f's operator bounds and check that its required horizon fits
// within the available number of steps.
func Validate[S any](f Formula[S], available int) error {
	if f == nil {
		return fmt.Errorf("%w: formula is nil", ErrInvalid)
	}
	if err := f.validate(); err != nil {
		return err
	}
	if h := f.horizon(); h > available {
		return fmt.Errorf("%w: formula requires a horizon of %v steps but only %v are available", ErrHorizon, h, available)
	}
	return nil
}

// satisfied is the residual of a resolved, satisfied obligation.
type satisfied[S any] struct{}

func (satisfied[S]) horizon() int            { return 0 }
func (satisfied[S]) validate() error         { return nil }
func (t satisfied[S]) progress(S) Formula[S] { return t }
func (satisfied[S]) String() string          { return "true" }

// violated is the residual of a resolved, violated obligation. It carries
// the identity of the sub-formula that was broken.
type violated[S any] struct {
	cause string
}

func (violated[S]) horizon() int            { return 0 }
func (violated[S]) validate() error         { return nil }
func (v violated[S]) progress(S) Formula[S] { return v }
func (violated[S]) String() string          { return "false" }

type atom[S any] struct {
	name string
	pred func(S) bool
}

func (atom[S]) horizon() int { return 1 }

func (a atom[S]) validate() error {
	if a.pred == nil {
		return fmt.Errorf("%w: atom %q has no predicate", ErrInvalid, a.name)
	}
	return nil
}

func (a atom[S]) progress(s S) Formula[S] {
	if a.pred(s) {
		return satisfied[S]{}
	}
	return violated[S]{cause: a.name}
}

func (a atom[S]) String() string { return a.name }

type and[S any] struct {
	fs []Formula[S]
}

func (a and[S]) horizon() int {
	h := 0
	for _, f := range a.fs {
		if fh := f.horizon(); fh > h {
			h = fh
		}
	}
	return h
}

func (a and[S]) validate() error {
	if len(a.fs) == 0 {
		return fmt.Errorf("%w: and has no sub-formulas", ErrInvalid)
	}
	return validateAll(a.fs)
}

func (a and[S]) progress(s S) Formula[S] {
	residual := make([]Formula[S], 0, len(a.fs))
	for _, f := range a.fs {
		r := f.progress(s)
		switch t := r.(type) {
		case violated[S]:
			return t
		case satisfied[S]:
		default:
			residual = append(residual, r)
		}
	}
	return conjoin(residual)
}

func (a and[S]) String() string { return joinOp(a.fs, " and ") }

type or[S any] struct {
	fs []Formula[S]
}

func (o or[S]) horizon() int {
	h := 0
	for _, f := range o.fs {
		if fh := f.horizon(); fh > h {
			h = fh
		}
	}
	return h
}

func (o or[S]) validate() error {
	if len(o.fs) == 0 {
		return fmt.Errorf("%w: or has no sub-formulas", ErrInvalid)
	}
	return validateAll(o.fs)
}

func (o or[S]) progress(s S) Formula[S] {
	residual := make([]Formula[S], 0, len(o.fs))
	for _, f := range o.fs {
		r := f.progress(s)
		switch r.(type) {
		case satisfied[S]:
			return satisfied[S]{}
		case violated[S]:
		default:
			residual = append(residual, r)
		}
	}
	if len(residual) == 0 {
		return violated[S]{cause: o.String()}
	}
	return disjoin(residual)
}

func (o or[S]) String() string { return joinOp(o.fs, " or ") }

type next[S any] struct {
	f Formula[S]
}

func (n next[S]) horizon() int { return 1 + n.f.horizon() }

func (n next[S]) validate() error {
	if n.f == nil {
		return fmt.Errorf("%w: next has no sub-formula", ErrInvalid)
	}
	return n.f.validate()
}

func (n next[S]) progress(S) Formula[S] { return n.f }

func (n next[S]) String() string { return fmt.Sprintf("next(%v)", n.f) }

type always[S any] struct {
	f Formula[S]
	n int
}

func (a always[S]) horizon() int { return a.n - 1 + a.f.horizon() }

func (a always[S]) validate() error {
	if a.f == nil {
		return fmt.Errorf("%w: always has no sub-formula", ErrInvalid)
	}
	if a.n < 1 {
		return fmt.Errorf("%w: always bound %v must be at least 1", ErrInvalid, a.n)
	}
	return a.f.validate()
}

func (a always[S]) progress(s S) Formula[S] {
	r := a.f.progress(s)
	if v, ok := r.(violated[S]); ok {
		return v
	}
	if a.n == 1 {
		return r
	}
	return conj2(r, always[S]{f: a.f, n: a.n - 1})
}

func (a always[S]) String() string { return fmt.Sprintf("always(%v) during %v", a.f, a.n) }

type later[S any] struct {
	f Formula[S]
	n int
	// The rendering of the formula as constructed. Residuals produced while
	// progressing keep the label so violations are reported against the
	// original bound, not the remaining one.
	label string
}

func (l later[S]) horizon() int { return l.n + l.f.horizon() }

func (l later[S]) validate() error {
	if l.f == nil {
		return fmt.Errorf("%w: later has no sub-formula", ErrInvalid)
	}
	if l.n < 0 {
		return fmt.Errorf("%w: later bound %v is negative", ErrInvalid, l.n)
	}
	return l.f.validate()
}

func (l later[S]) progress(s S) Formula[S] {
	r := l.f.progress(s)
	if _, ok := r.(satisfied[S]); ok {
		return satisfied[S]{}
	}
	if l.n == 0 {
		// The bound is exhausted. A pending residual of f may still resolve
		// on later steps; a violation means f never held within the bound.
		if _, ok := r.(violated[S]); ok {
			return violated[S]{cause: l.String()}
		}
		return l.remapViolation(r)
	}
	rest := later[S]{f: l.f, n: l.n - 1, label: l.label}
	if _, ok := r.(violated[S]); ok {
		return rest
	}
	return disj2(r, rest)
}

// remapViolation wraps a still-pending residual so that a violation surfaced
// after the bound is exhausted is reported against the later formula rather
// than the atom inside it.
func (l later[S]) remapViolation(r Formula[S]) Formula[S] {
	return remapped[S]{f: r, cause: l.String()}
}

func (l later[S]) String() string { return l.label }

type until[S any] struct {
	f Formula[S]
	g Formula[S]
	n int
	// As in later: the construction-time rendering, kept across progression.
	label string
}

func (u until[S]) horizon() int {
	hf := u.f.horizon()
	hg := u.g.horizon()
	if hg > hf {
		hf = hg
	}
	return u.n + hf
}

func (u until[S]) validate() error {
	if u.f == nil || u.g == nil {
		return fmt.Errorf("%w: until is missing a sub-formula", ErrInvalid)
	}
	if u.n < 0 {
		return fmt.Errorf("%w: until bound %v is negative", ErrInvalid, u.n)
	}
	if err := u.f.validate(); err != nil {
		return err
	}
	return u.g.validate()
}

func (u until[S]) progress(s S) Formula[S] {
	// g's satisfaction is checked before f's violation, so a step where both
	// happen satisfies the formula.
	rg := u.g.progress(s)
	if _, ok := rg.(satisfied[S]); ok {
		return satisfied[S]{}
	}
	if u.n == 0 {
		// Last step at which g may start holding. f carries no obligation at
		// the g-step itself.
		if _, ok := rg.(violated[S]); ok {
			return violated[S]{cause: u.String()}
		}
		return remapped[S]{f: rg, cause: u.String()}
	}
	rf := u.f.progress(s)
	if v, ok := rf.(violated[S]); ok {
		// f broke at this step; the formula survives only if g resolves
		// positively from this very step.
		if _, gone := rg.(violated[S]); gone {
			return v
		}
		return remapped[S]{f: rg, cause: v.cause}
	}
	rest := until[S]{f: u.f, g: u.g, n: u.n - 1, label: u.label}
	right := conj2(rf, rest)
	if _, ok := rg.(violated[S]); ok {
		return right
	}
	return disj2(rg, right)
}

func (u until[S]) String() string { return u.label }

// remapped re-labels any violation of the wrapped residual with a fixed
// cause. Used when a bound is exhausted and the obligation is pinned to an
// already-started occurrence of a sub-formula.
type remapped[S any] struct {
	f     Formula[S]
	cause string
}

func (r remapped[S]) horizon() int    { return r.f.horizon() }
func (r remapped[S]) validate() error { return r.f.validate() }

func (r remapped[S]) progress(s S) Formula[S] {
	res := r.f.progress(s)
	switch res.(type) {
	case satisfied[S]:
		return satisfied[S]{}
	case violated[S]:
		return violated[S]{cause: r.cause}
	}
	return remapped[S]{f: res, cause: r.cause}
}

func (r remapped[S]) String() string { return r.f.String() }

func validateAll[S any](fs []Formula[S]) error {
	for _, f := range fs {
		if f == nil {
			return fmt.Errorf("%w: nil sub-formula", ErrInvalid)
		}
		if err := f.validate(); err != nil {
			return err
		}
	}
	return nil
}

// conjoin builds the residual conjunction of already-progressed formulas.
func conjoin[S any](fs []Formula[S]) Formula[S] {
	switch len(fs) {
	case 0:
		return satisfied[S]{}
	case 1:
		return fs[0]
	}
	return and[S]{fs: fs}
}

func disjoin[S any](fs []Formula[S]) Formula[S] {
	switch len(fs) {
	case 0:
		return violated[S]{}
	case 1:
		return fs[0]
	}
	return or[S]{fs: fs}
}

func conj2[S any](a, b Formula[S]) Formula[S] {
	if v, ok := a.(violated[S]); ok {
		return v
	}
	if v, ok := b.(violated[S]); ok {
		return v
	}
	if _, ok := a.(satisfied[S]); ok {
		return b
	}
	if _, ok := b.(satisfied[S]); ok {
		return a
	}
	return and[S]{fs: []Formula[S]{a, b}}
}

func disj2[S any](a, b Formula[S]) Formula[S] {
	if _, ok := a.(satisfied[S]); ok {
		return a
	}
	if _, ok := b.(satisfied[S]); ok {
		return b
	}
	if _, ok := a.(violated[S]); ok {
		return b
	}
	if _, ok := b.(violated[S]); ok {
		return a
	}
	return or[S]{fs: []Formula[S]{a, b}}
}

func joinOp[S any](fs []Formula[S], sep string) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

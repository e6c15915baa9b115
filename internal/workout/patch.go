package workout

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// #region ops

// OpKind tags an Op variant in its serialized form.
type OpKind string

const (
	KindSetPrescription OpKind = "set_prescription"
	KindSetPlan         OpKind = "set_plan"
	KindSetAIMeta       OpKind = "set_ai_meta"
	KindReschedule      OpKind = "reschedule"
	KindSetDuration     OpKind = "set_duration"
	KindSetTitle        OpKind = "set_title"
	KindSetType         OpKind = "set_type"
)

// Op is one field-level update. The variants below are the only implementations.
type Op interface {
	Kind() OpKind
	Field() Field
	apply(w *Workout)
	// capture returns the op that restores w's current value of the same field.
	capture(w Workout) Op
}

type SetPrescription struct{ Text string }
type SetPlan struct{ PlanJSON string }
type SetAIMeta struct {
	Source     string
	Note       string
	Confidence int
}
type Reschedule struct{ Date time.Time }
type SetDuration struct{ Minutes int }
type SetTitle struct{ Title string }
type SetType struct{ Type string }

func (SetPrescription) Kind() OpKind { return KindSetPrescription }
func (SetPlan) Kind() OpKind         { return KindSetPlan }
func (SetAIMeta) Kind() OpKind       { return KindSetAIMeta }
func (Reschedule) Kind() OpKind      { return KindReschedule }
func (SetDuration) Kind() OpKind     { return KindSetDuration }
func (SetTitle) Kind() OpKind        { return KindSetTitle }
func (SetType) Kind() OpKind         { return KindSetType }

func (SetPrescription) Field() Field { return FieldPrescription }
func (SetPlan) Field() Field         { return FieldPlan }
func (SetAIMeta) Field() Field       { return FieldAIMeta }
func (Reschedule) Field() Field      { return FieldDate }
func (SetDuration) Field() Field     { return FieldDuration }
func (SetTitle) Field() Field        { return FieldTitle }
func (SetType) Field() Field         { return FieldType }

func (o SetPrescription) apply(w *Workout) { w.Prescription = o.Text }
func (o SetPlan) apply(w *Workout)         { w.PlanJSON = o.PlanJSON }
func (o SetAIMeta) apply(w *Workout) {
	w.AISource = o.Source
	w.AINote = o.Note
	w.AIConfidence = o.Confidence
}
func (o Reschedule) apply(w *Workout)  { w.Date = o.Date }
func (o SetDuration) apply(w *Workout) { w.DurationMin = o.Minutes }
func (o SetTitle) apply(w *Workout)    { w.Title = o.Title }
func (o SetType) apply(w *Workout)     { w.Type = o.Type }

func (SetPrescription) capture(w Workout) Op { return SetPrescription{Text: w.Prescription} }
func (SetPlan) capture(w Workout) Op         { return SetPlan{PlanJSON: w.PlanJSON} }
func (SetAIMeta) capture(w Workout) Op {
	return SetAIMeta{Source: w.AISource, Note: w.AINote, Confidence: w.AIConfidence}
}
func (Reschedule) capture(w Workout) Op  { return Reschedule{Date: w.Date} }
func (SetDuration) capture(w Workout) Op { return SetDuration{Minutes: w.DurationMin} }
func (SetTitle) capture(w Workout) Op    { return SetTitle{Title: w.Title} }
func (SetType) capture(w Workout) Op     { return SetType{Type: w.Type} }

// #endregion ops

// #region patch

// Patch is an ordered set of field-level updates.
type Patch struct {
	Ops []Op
}

// NewPatch builds a patch from ops.
func NewPatch(ops ...Op) Patch {
	return Patch{Ops: ops}
}

// Empty reports whether the patch touches nothing.
func (p Patch) Empty() bool {
	return len(p.Ops) == 0
}

// Validate rejects empty patches and nil ops.
func (p Patch) Validate() error {
	if p.Empty() {
		return errors.New("patch has no operations")
	}
	for i, op := range p.Ops {
		if op == nil {
			return fmt.Errorf("patch op %d is nil", i)
		}
	}
	return nil
}

// Fields returns the distinct fields the patch touches, in first-touch order.
func (p Patch) Fields() []Field {
	seen := make(map[Field]bool, len(p.Ops))
	var fields []Field
	for _, op := range p.Ops {
		if f := op.Field(); !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

// Touches reports whether the patch writes f.
func (p Patch) Touches(f Field) bool {
	for _, op := range p.Ops {
		if op.Field() == f {
			return true
		}
	}
	return false
}

// Apply returns w with every op applied in order. w itself is not modified.
func (p Patch) Apply(w Workout) Workout {
	out := w
	for _, op := range p.Ops {
		op.apply(&out)
	}
	return out
}

// Inverse captures w's before-values for every touched field. Applying the
// result to p.Apply(w) restores exactly those fields and nothing else.
func (p Patch) Inverse(w Workout) Patch {
	ops := make([]Op, len(p.Ops))
	for i, op := range p.Ops {
		// Reverse order so the earliest capture (the original value) lands last.
		ops[len(p.Ops)-1-i] = op.capture(w)
	}
	return Patch{Ops: ops}
}

// #endregion patch

// #region json

type opJSON struct {
	Kind       OpKind     `json:"kind"`
	Text       string     `json:"text,omitempty"`
	PlanJSON   string     `json:"plan_json,omitempty"`
	Source     string     `json:"source,omitempty"`
	Note       string     `json:"note,omitempty"`
	Confidence int        `json:"confidence,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	Minutes    int        `json:"minutes,omitempty"`
	Title      string     `json:"title,omitempty"`
	Type       string     `json:"type,omitempty"`
}

// MarshalJSON encodes the patch as a tagged op list.
func (p Patch) MarshalJSON() ([]byte, error) {
	out := make([]opJSON, 0, len(p.Ops))
	for i, op := range p.Ops {
		var j opJSON
		switch o := op.(type) {
		case SetPrescription:
			j = opJSON{Kind: o.Kind(), Text: o.Text}
		case SetPlan:
			j = opJSON{Kind: o.Kind(), PlanJSON: o.PlanJSON}
		case SetAIMeta:
			j = opJSON{Kind: o.Kind(), Source: o.Source, Note: o.Note, Confidence: o.Confidence}
		case Reschedule:
			d := o.Date
			j = opJSON{Kind: o.Kind(), Date: &d}
		case SetDuration:
			j = opJSON{Kind: o.Kind(), Minutes: o.Minutes}
		case SetTitle:
			j = opJSON{Kind: o.Kind(), Title: o.Title}
		case SetType:
			j = opJSON{Kind: o.Kind(), Type: o.Type}
		default:
			return nil, fmt.Errorf("marshal patch op %d: unknown op %T", i, op)
		}
		out = append(out, j)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a tagged op list.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw []opJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal patch: %w", err)
	}
	ops := make([]Op, 0, len(raw))
	for i, j := range raw {
		switch j.Kind {
		case KindSetPrescription:
			ops = append(ops, SetPrescription{Text: j.Text})
		case KindSetPlan:
			ops = append(ops, SetPlan{PlanJSON: j.PlanJSON})
		case KindSetAIMeta:
			ops = append(ops, SetAIMeta{Source: j.Source, Note: j.Note, Confidence: j.Confidence})
		case KindReschedule:
			if j.Date == nil {
				return fmt.Errorf("unmarshal patch op %d: reschedule without date", i)
			}
			ops = append(ops, Reschedule{Date: *j.Date})
		case KindSetDuration:
			ops = append(ops, SetDuration{Minutes: j.Minutes})
		case KindSetTitle:
			ops = append(ops, SetTitle{Title: j.Title})
		case KindSetType:
			ops = append(ops, SetType{Type: j.Type})
		default:
			return fmt.Errorf("unmarshal patch op %d: unknown kind %q", i, j.Kind)
		}
	}
	p.Ops = ops
	return nil
}

// #endregion json

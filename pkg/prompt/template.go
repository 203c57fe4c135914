// Package prompt assembles the ordered message segments of a conversation
// and renders them, together with the session history, into the chat sent
// for one exchange.
package prompt

import (
	"github.com/germanamz/autoprompt/pkg/chats/chat"
	"github.com/germanamz/autoprompt/pkg/chats/message"
)

// Kind identifies a template segment.
type Kind int

const (
	// KindSystem is fixed system guidance.
	KindSystem Kind = iota
	// KindHistory is replaced by the session history.
	KindHistory
	// KindDirective is replaced by the directive value as a system message.
	KindDirective
	// KindHuman is replaced by the user input as a human message.
	KindHuman
)

// Segment is one slot of a Template.
type Segment struct {
	Kind Kind
	Text string // Only used by KindSystem.
}

// Values fills the placeholders of a Template for one exchange.
type Values struct {
	Input     string
	Directive string
}

// Options selects the shape of a Template.
type Options struct {
	// Global is the system guidance placed first.
	Global string
	// Guidance is the category guidance. When non-empty the template also
	// carries a directive placeholder.
	Guidance string
	// Hidden drops the human placeholder. A non-empty input is then rendered
	// directly after the history instead.
	Hidden bool
}

// Template is an immutable, ordered list of segments.
type Template struct {
	segments []Segment
}

// Build assembles a template:
//
//	system(Global), history, [system(Guidance), directive], [human]
func Build(opts Options) Template {
	segs := []Segment{
		{Kind: KindSystem, Text: opts.Global},
		{Kind: KindHistory},
	}

	if opts.Guidance != "" {
		segs = append(segs,
			Segment{Kind: KindSystem, Text: opts.Guidance},
			Segment{Kind: KindDirective},
		)
	}

	if !opts.Hidden {
		segs = append(segs, Segment{Kind: KindHuman})
	}

	return Template{segments: segs}
}

// HasHuman reports whether the template carries a human placeholder.
func (t Template) HasHuman() bool {
	for _, s := range t.segments {
		if s.Kind == KindHuman {
			return true
		}
	}
	return false
}

// Pending returns the messages an exchange with v adds to the history
// before the model's reply: the human turn, when there is one.
func (t Template) Pending(v Values) []message.Message {
	if t.HasHuman() || v.Input != "" {
		return []message.Message{message.User(v.Input)}
	}
	return nil
}

// Render produces the chat for one exchange. Empty system and directive
// values are skipped.
func (t Template) Render(history []message.Message, v Values) *chat.Chat {
	c := chat.New()
	human := t.HasHuman()

	for _, s := range t.segments {
		switch s.Kind {
		case KindSystem:
			if s.Text != "" {
				c.Append(message.System(s.Text))
			}
		case KindHistory:
			c.Append(history...)
			if !human && v.Input != "" {
				c.Append(message.User(v.Input))
			}
		case KindDirective:
			if v.Directive != "" {
				c.Append(message.System(v.Directive))
			}
		case KindHuman:
			c.Append(message.User(v.Input))
		}
	}

	return c
}

// internal/content/block.go
//
// Tagged content blocks.
//
// Context
// -------
// Marketing pages are a list of blocks.  Each block is one of a closed set
// of kinds, carries a strict data shape, and is rendered by the template of
// the same name.  No block accepts raw HTML; every string goes through
// html/template escaping.  An unknown kind, or a known kind missing its
// required fields, fails at load time rather than at render time.
//
// Kinds
// -----
//   • hero             heading, subheading, optional call-to-action link
//   • feature_list     heading plus titled items
//   • payment_options  accepted methods and an optional note
//   • guarantee_list   plain bullet promises
//   • cta              closing call-to-action with a link
//
// Notes
// -----
// • YAML uses a `kind:` discriminator; see content/*.yaml.
// • Oxford commas, two spaces after periods.

package content

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind discriminates block variants.
type Kind string

const (
	KindHero           Kind = "hero"
	KindFeatureList    Kind = "feature_list"
	KindPaymentOptions Kind = "payment_options"
	KindGuaranteeList  Kind = "guarantee_list"
	KindCTA            Kind = "cta"
)

// ErrUnknownKind is returned for a block whose kind is not in the set.
var ErrUnknownKind = errors.New("content: unknown block kind")

// Block is implemented by every variant.
type Block interface {
	Kind() Kind
	check() error
}

// Link is an internal path or an https URL.
type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

func (l *Link) check() error {
	if l.Label == "" {
		return errors.New("link label is empty")
	}
	if !strings.HasPrefix(l.Href, "/") && !strings.HasPrefix(l.Href, "https://") {
		return fmt.Errorf("link %q must be a site path or https URL", l.Href)
	}
	return nil
}

/*──────────────────────────── variants ────────────────────────────────────*/

type Hero struct {
	Heading    string `yaml:"heading"`
	Subheading string `yaml:"subheading"`
	CTA        *Link  `yaml:"cta"`
}

func (*Hero) Kind() Kind { return KindHero }
func (h *Hero) check() error {
	if h.Heading == "" {
		return errors.New("hero: heading is required")
	}
	if h.CTA != nil {
		return h.CTA.check()
	}
	return nil
}

type Feature struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

type FeatureList struct {
	Heading string    `yaml:"heading"`
	Items   []Feature `yaml:"items"`
}

func (*FeatureList) Kind() Kind { return KindFeatureList }
func (f *FeatureList) check() error {
	if len(f.Items) == 0 {
		return errors.New("feature_list: items are required")
	}
	for i, it := range f.Items {
		if it.Title == "" {
			return fmt.Errorf("feature_list: item %d has no title", i)
		}
	}
	return nil
}

type PaymentOptions struct {
	Heading string   `yaml:"heading"`
	Methods []string `yaml:"methods"`
	Note    string   `yaml:"note"`
}

func (*PaymentOptions) Kind() Kind { return KindPaymentOptions }
func (p *PaymentOptions) check() error {
	if len(p.Methods) == 0 {
		return errors.New("payment_options: methods are required")
	}
	return nil
}

type GuaranteeList struct {
	Heading string   `yaml:"heading"`
	Items   []string `yaml:"items"`
}

func (*GuaranteeList) Kind() Kind { return KindGuaranteeList }
func (g *GuaranteeList) check() error {
	if len(g.Items) == 0 {
		return errors.New("guarantee_list: items are required")
	}
	return nil
}

type CTA struct {
	Heading string `yaml:"heading"`
	Text    string `yaml:"text"`
	Link    Link   `yaml:"link"`
}

func (*CTA) Kind() Kind { return KindCTA }
func (c *CTA) check() error {
	if c.Heading == "" {
		return errors.New("cta: heading is required")
	}
	return c.Link.check()
}

/*──────────────────────────── decoding ────────────────────────────────────*/

// newBlock returns an empty variant for k.
func newBlock(k Kind) (Block, error) {
	switch k {
	case KindHero:
		return &Hero{}, nil
	case KindFeatureList:
		return &FeatureList{}, nil
	case KindPaymentOptions:
		return &PaymentOptions{}, nil
	case KindGuaranteeList:
		return &GuaranteeList{}, nil
	case KindCTA:
		return &CTA{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, k)
}

// Blocks is a YAML-decodable list of variants.
type Blocks []Block

func (bs *Blocks) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: blocks must be a list", n.Line)
	}
	out := make(Blocks, 0, len(n.Content))
	for _, item := range n.Content {
		var head struct {
			Kind Kind `yaml:"kind"`
		}
		if err := item.Decode(&head); err != nil {
			return fmt.Errorf("line %d: %w", item.Line, err)
		}
		b, err := newBlock(head.Kind)
		if err != nil {
			return fmt.Errorf("line %d: %w", item.Line, err)
		}
		if err := item.Decode(b); err != nil {
			return fmt.Errorf("line %d: %w", item.Line, err)
		}
		if err := b.check(); err != nil {
			return fmt.Errorf("line %d: %w", item.Line, err)
		}
		out = append(out, b)
	}
	*bs = out
	return nil
}

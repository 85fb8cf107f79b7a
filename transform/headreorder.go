// Package transform implements normalization passes over parsed HTML
// documents. The only pass currently provided rewrites the children of a
// document's <head> into a canonical order so that downstream rendering
// and caching see a stable, byte-identical head layout regardless of how
// the source document arranged it.
package transform

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ampnorm/htmlnode"
)

const ampCDNPrefix = "https://cdn.ampproject.org/"

const (
	gmailViewerPrefix  = ampCDNPrefix + "v0/amp-viewer-integration-gmail-"
	viewerPrefix       = ampCDNPrefix + "v0/amp-viewer-integration-"
	googleViewerPrefix = ampCDNPrefix + "viewer/google/v"
)

// Extensions that block rendering until their script has executed. All
// other extensions load without delaying first paint.
var renderDelayingExtensions = map[string]bool{
	"amp-story":               true,
	"amp-experiment":          true,
	"amp-dynamic-css-classes": true,
}

// Runtime script names served from the AMP CDN, with and without brotli.
var ampEngineSuffixes = []string{"/v0.js", "/v0.js.br", "/amp4ads-v0.js", "/amp4ads-v0.js.br"}

// rel values are matched as exact strings, not as token sets - the
// reordering contract is literal, a rel="dns-prefetch preconnect" link is
// recognized only in that spelling.
var iconRels = map[string]bool{
	"icon":          true,
	"icon shortcut": true,
	"shortcut icon": true,
}

const resourceHintRel = "dns-prefetch preconnect"

// HeadReorderer rewrites head children into the canonical order.
type HeadReorderer struct {
	log *zap.Logger
}

// NewHeadReorderer creates a head reorderer logging through the supplied
// logger.
func NewHeadReorderer(log *zap.Logger) *HeadReorderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &HeadReorderer{log: log.Named("head-reorder")}
}

// ReorderHead rewrites head's children into the canonical order without
// logging. Shorthand for callers that do not care about diagnostics.
func ReorderHead(head *html.Node) *html.Node {
	return NewHeadReorderer(nil).Reorder(head)
}

// Reorder classifies every direct child of head into a semantic bucket
// and re-appends the buckets in a fixed priority sequence. The head is
// mutated in place and returned. Relative order within a bucket follows
// the input document order, so the operation is idempotent. A nil head is
// returned unchanged.
func (r *HeadReorderer) Reorder(head *html.Node) *html.Node {
	if head == nil {
		return nil
	}

	in := htmlnode.Children(head)
	buckets := r.classify(in)

	htmlnode.RemoveAllChildren(head)
	for _, slot := range headOrder {
		htmlnode.AppendChildren(head, slot.nodes(buckets)...)
	}

	out := len(htmlnode.Children(head))
	if out != len(in) {
		r.log.Debug("Reordered head dropped nodes", zap.Int("in", len(in)), zap.Int("out", out))
	} else {
		r.log.Debug("Reordered head", zap.Int("children", out))
	}
	return head
}

// headBuckets holds the classified children of a single head for one
// Reorder call. Single-slot fields keep at most one node, list fields
// keep input order with duplicates-by-identity suppressed.
type headBuckets struct {
	metaCharset              *html.Node
	linkStylesheetRuntimeCSS *html.Node
	styleAmpRuntime          *html.Node
	scriptAmpEngine          *html.Node
	scriptAmpViewer          *html.Node
	scriptGmailAmpViewer     *html.Node
	styleAmpCustom           *html.Node
	styleAmpBoilerplate      *html.Node
	noscript                 *html.Node

	metaOther                         []*html.Node
	scriptRenderDelayingExtensions    []*html.Node
	scriptNonRenderDelayingExtensions []*html.Node
	linkIcons                         []*html.Node
	linkResourceHints                 []*html.Node
	linkStylesheetBeforeAmpCustom     []*html.Node
	other                             []*html.Node

	claimed map[*html.Node]struct{}
}

// addOnceOrdered appends n to list unless the same node was already added
// to some list, preserving insertion order.
func (b *headBuckets) addOnceOrdered(list *[]*html.Node, n *html.Node) {
	if _, ok := b.claimed[n]; ok {
		return
	}
	b.claimed[n] = struct{}{}
	*list = append(*list, n)
}

// headOrder is the canonical emission sequence, kept as data so the
// priority order is auditable in one place. Single slots contribute at
// most one node, list slots contribute all of theirs.
var headOrder = []struct {
	name  string
	nodes func(*headBuckets) []*html.Node
}{
	{"meta_charset", func(b *headBuckets) []*html.Node { return single(b.metaCharset) }},
	{"link_stylesheet_runtime_css", func(b *headBuckets) []*html.Node { return single(b.linkStylesheetRuntimeCSS) }},
	{"style_amp_runtime", func(b *headBuckets) []*html.Node { return single(b.styleAmpRuntime) }},
	{"meta_other", func(b *headBuckets) []*html.Node { return b.metaOther }},
	{"script_amp_engine", func(b *headBuckets) []*html.Node { return single(b.scriptAmpEngine) }},
	{"script_amp_viewer", func(b *headBuckets) []*html.Node { return single(b.scriptAmpViewer) }},
	{"script_gmail_amp_viewer", func(b *headBuckets) []*html.Node { return single(b.scriptGmailAmpViewer) }},
	{"script_render_delaying_extensions", func(b *headBuckets) []*html.Node { return b.scriptRenderDelayingExtensions }},
	{"script_other_extensions", func(b *headBuckets) []*html.Node { return b.scriptNonRenderDelayingExtensions }},
	{"link_icons", func(b *headBuckets) []*html.Node { return b.linkIcons }},
	{"link_resource_hints", func(b *headBuckets) []*html.Node { return b.linkResourceHints }},
	{"link_stylesheets_before_amp_custom", func(b *headBuckets) []*html.Node { return b.linkStylesheetBeforeAmpCustom }},
	{"style_amp_custom", func(b *headBuckets) []*html.Node { return single(b.styleAmpCustom) }},
	{"other", func(b *headBuckets) []*html.Node { return b.other }},
	{"style_amp_boilerplate", func(b *headBuckets) []*html.Node { return single(b.styleAmpBoilerplate) }},
	{"noscript", func(b *headBuckets) []*html.Node { return single(b.noscript) }},
}

func single(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	return []*html.Node{n}
}

// classify distributes children over buckets in one forward pass. The
// pass is stateful: the stylesheet-link rule depends on whether an
// amp-custom style was already seen, so iteration order matters and the
// pass must not be reordered or split.
func (r *HeadReorderer) classify(children []*html.Node) *headBuckets {
	b := &headBuckets{claimed: make(map[*html.Node]struct{})}
	for _, child := range children {
		switch child.DataAtom {
		case atom.Meta:
			r.classifyMeta(b, child)
		case atom.Script:
			r.classifyScript(b, child)
		case atom.Style:
			r.classifyStyle(b, child)
		case atom.Link:
			r.classifyLink(b, child)
		case atom.Noscript:
			if b.noscript != nil {
				r.log.Debug("Replacing earlier noscript in head")
			}
			b.noscript = child
		default:
			// Unknown tags and non-element nodes (text, comments) are
			// carried through unchanged.
			b.addOnceOrdered(&b.other, child)
		}
	}
	return b
}

func (r *HeadReorderer) classifyMeta(b *headBuckets, n *html.Node) {
	if !htmlnode.HasAttr(n, "charset") {
		b.addOnceOrdered(&b.metaOther, n)
		return
	}
	if b.metaCharset != nil {
		// First charset wins, later ones are not re-routed anywhere.
		r.log.Debug("Dropping duplicate meta charset")
		return
	}
	b.metaCharset = n
}

func (r *HeadReorderer) classifyScript(b *headBuckets, n *html.Node) {
	// Extension scripts are recognized by attribute alone, before any of
	// the src-based runtime rules.
	if htmlnode.HasAnyAttr(n, "custom-element", "custom-template", "host-service") {
		name, _ := htmlnode.AttrValue(n, "custom-element")
		if renderDelayingExtensions[name] {
			b.addOnceOrdered(&b.scriptRenderDelayingExtensions, n)
		} else {
			b.addOnceOrdered(&b.scriptNonRenderDelayingExtensions, n)
		}
		return
	}

	if !htmlnode.HasAttr(n, "async") {
		b.addOnceOrdered(&b.other, n)
		return
	}
	src, _ := htmlnode.AttrValue(n, "src")
	switch {
	case isAmpEngineSrc(src):
		b.scriptAmpEngine = n
	case strings.HasPrefix(src, gmailViewerPrefix) && strings.HasSuffix(src, ".js"):
		b.scriptGmailAmpViewer = n
	case strings.HasPrefix(src, viewerPrefix),
		strings.HasPrefix(src, googleViewerPrefix) && strings.HasSuffix(src, ".js"):
		b.scriptAmpViewer = n
	default:
		b.addOnceOrdered(&b.other, n)
	}
}

func isAmpEngineSrc(src string) bool {
	if !strings.HasPrefix(src, ampCDNPrefix) {
		return false
	}
	for _, suffix := range ampEngineSuffixes {
		if strings.HasSuffix(src, suffix) {
			return true
		}
	}
	return false
}

func (r *HeadReorderer) classifyStyle(b *headBuckets, n *html.Node) {
	switch {
	case htmlnode.HasAttr(n, "amp-runtime"):
		b.styleAmpRuntime = n
	case htmlnode.HasAttr(n, "amp-custom"):
		b.styleAmpCustom = n
	case htmlnode.HasAnyAttr(n, "amp-boilerplate", "amp4ads-boilerplate"):
		b.styleAmpBoilerplate = n
	default:
		b.addOnceOrdered(&b.other, n)
	}
}

func (r *HeadReorderer) classifyLink(b *headBuckets, n *html.Node) {
	rel, _ := htmlnode.AttrValue(n, "rel")
	switch {
	case rel == "stylesheet":
		href, _ := htmlnode.AttrValue(n, "href")
		if strings.HasPrefix(href, ampCDNPrefix) && strings.HasSuffix(href, "/v0.css") {
			b.linkStylesheetRuntimeCSS = n
			return
		}
		if b.styleAmpCustom == nil {
			b.addOnceOrdered(&b.linkStylesheetBeforeAmpCustom, n)
			return
		}
		// A stylesheet after the amp-custom style would change cascade
		// order if kept, so it is discarded.
		r.log.Debug("Dropping stylesheet link after amp-custom style", zap.String("href", href))
	case iconRels[rel]:
		b.addOnceOrdered(&b.linkIcons, n)
	case rel == resourceHintRel:
		b.addOnceOrdered(&b.linkResourceHints, n)
	default:
		b.addOnceOrdered(&b.other, n)
	}
}

package htmlnode_test

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ampnorm/htmlnode"
)

func parseDoc(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

func TestAttrHelpers(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta charset="utf-8"></head><body></body></html>`)
	meta, ok := htmlnode.FindNode(doc, atom.Meta)
	if !ok {
		t.Fatalf("meta not found")
	}

	t.Run("value_present", func(t *testing.T) {
		val, ok := htmlnode.AttrValue(meta, "charset")
		if !ok || val != "utf-8" {
			t.Fatalf("expected charset=utf-8, got %q (present=%v)", val, ok)
		}
	})

	t.Run("value_absent", func(t *testing.T) {
		if val, ok := htmlnode.AttrValue(meta, "content"); ok || val != "" {
			t.Fatalf("expected absent attribute, got %q (present=%v)", val, ok)
		}
		if htmlnode.HasAttr(meta, "content") {
			t.Fatalf("HasAttr reported absent attribute as present")
		}
	})

	t.Run("any_of", func(t *testing.T) {
		if !htmlnode.HasAnyAttr(meta, "http-equiv", "charset") {
			t.Fatalf("HasAnyAttr missed present attribute")
		}
		if htmlnode.HasAnyAttr(meta, "http-equiv", "content") {
			t.Fatalf("HasAnyAttr matched with all attributes absent")
		}
	})
}

func TestChildrenSnapshot(t *testing.T) {
	doc := parseDoc(t, `<html><head><meta charset="utf-8"><title>x</title><link rel="icon" href="/f.ico"></head><body></body></html>`)
	head, _ := htmlnode.FindNode(doc, atom.Head)

	children := htmlnode.Children(head)
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}

	// The snapshot must survive tree mutation: clear the head and verify
	// the slice still references the detached nodes in order.
	htmlnode.RemoveAllChildren(head)
	if head.FirstChild != nil {
		t.Fatalf("head still has children after RemoveAllChildren")
	}
	if children[0].DataAtom != atom.Meta || children[1].DataAtom != atom.Title || children[2].DataAtom != atom.Link {
		t.Fatalf("snapshot order lost after mutation")
	}

	htmlnode.AppendChildren(head, children[2], children[0])
	got := htmlnode.Children(head)
	if len(got) != 2 || got[0].DataAtom != atom.Link || got[1].DataAtom != atom.Meta {
		t.Fatalf("AppendChildren did not restore nodes in requested order")
	}
}

func TestAppendChildrenDetaches(t *testing.T) {
	doc := parseDoc(t, `<html><head><title>x</title></head><body></body></html>`)
	head, _ := htmlnode.FindNode(doc, atom.Head)
	body, _ := htmlnode.FindNode(doc, atom.Body)
	title, _ := htmlnode.FindNode(doc, atom.Title)

	// Moving a still-attached node must not panic and must leave a single
	// copy at the destination.
	htmlnode.AppendChildren(body, title)
	if len(htmlnode.Children(head)) != 0 {
		t.Fatalf("title still attached to head")
	}
	if got := htmlnode.Children(body); len(got) != 1 || got[0] != title {
		t.Fatalf("title not moved to body")
	}
}

func TestFindNode(t *testing.T) {
	doc := parseDoc(t, `<html><head></head><body><div><span>a</span><span>b</span></div></body></html>`)

	span, ok := htmlnode.FindNode(doc, atom.Span)
	if !ok {
		t.Fatalf("span not found")
	}
	if span.FirstChild == nil || span.FirstChild.Data != "a" {
		t.Fatalf("FindNode did not return the first span in document order")
	}

	if _, ok := htmlnode.FindNode(doc, atom.Table); ok {
		t.Fatalf("found element that is not in the document")
	}
}

package format

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/c360studio/songbook/model"
)

// HTMLName is the registry name of the HTML format.
const HTMLName = "html"

var (
	fenceLineRe      = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	markdownEscapeRe = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!|<>~])`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// HTML writes songs as a standalone page and reads either such pages or
// arbitrary web pages that carry a chord sheet, typically in a <pre>.
type HTML struct {
	Lang       string
	Stylesheet string

	sheet     *ChordSheet
	converter *md.Converter
}

// NewHTML creates the HTML format. Recognised params: lang and
// stylesheet (an href linked from the page head).
func NewHTML(params Params) (*HTML, error) {
	r := newParamReader(params)
	f := &HTML{
		Lang:       r.String("lang", "en"),
		Stylesheet: r.String("stylesheet", ""),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	f.converter = converter

	sheet, err := NewChordSheet(nil)
	if err != nil {
		return nil, err
	}
	f.sheet = sheet
	return f, nil
}

// Name returns the registry name.
func (f *HTML) Name() string { return HTMLName }

// CanRead returns true.
func (f *HTML) CanRead() bool { return true }

// CanWrite returns true.
func (f *HTML) CanWrite() bool { return true }

// Load parses the first song of a page.
func (f *HTML) Load(text string) (*model.Song, error) {
	songs, err := f.LoadBook(text)
	if err != nil {
		return nil, err
	}
	return songs[0], nil
}

// LoadBook parses every song of a page. Pages written by Dump are read
// structurally; any other page is reduced to its main content and read as
// a chord sheet.
func (f *HTML) LoadBook(text string) ([]*model.Song, error) {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, NewParseError("invalid HTML: "+err.Error(), text)
	}

	articles := findAll(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Article && hasClass(n, "song")
	})
	if len(articles) == 0 {
		song, err := f.loadChordSheet(doc)
		if err != nil {
			return nil, err
		}
		return []*model.Song{song}, nil
	}

	songs := make([]*model.Song, 0, len(articles))
	for _, article := range articles {
		song, err := f.songFromArticle(article)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func (f *HTML) songFromArticle(article *html.Node) (*model.Song, error) {
	song := &model.Song{}
	var heading, others []model.Annotation
	for c := article.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch {
		case c.DataAtom == atom.H1:
			if title := textContent(c); title != "" {
				heading = append(heading, model.TitleAnnotation{Title: title})
			}
		case c.DataAtom == atom.P && hasClass(c, "authors"):
			heading = append(heading, authorsOf(c)...)
		case c.DataAtom == atom.Dl && hasClass(c, "annotations"):
			others = append(others, definitionList(c)...)
		case c.DataAtom == atom.Section && hasClass(c, "strophe"):
			st, err := f.stropheFromSection(c)
			if err != nil {
				return nil, err
			}
			song.Items = append(song.Items, st)
		case c.DataAtom == atom.P && hasClass(c, "annotation"):
			key := textContent(findFirst(c, classMatcher("key")))
			value := textContent(findFirst(c, classMatcher("value")))
			if key == "" {
				return nil, NewParseError("annotation without key", renderNode(c))
			}
			song.Items = append(song.Items, model.AnnotationFor(key, value))
		}
	}
	song.Annotations = append(heading, others...)
	return song, nil
}

// authorsOf reads one author per span.author, or the whole paragraph as a
// single author when it has no such spans.
func authorsOf(p *html.Node) []model.Annotation {
	var out []model.Annotation
	spans := findAll(p, classMatcher("author"))
	if len(spans) == 0 {
		if name := textContent(p); name != "" {
			out = append(out, model.AuthorAnnotation{Name: name})
		}
		return out
	}
	for _, span := range spans {
		if name := textContent(span); name != "" {
			out = append(out, model.AuthorAnnotation{Name: name})
		}
	}
	return out
}

func definitionList(dl *html.Node) []model.Annotation {
	var out []model.Annotation
	key := ""
	for c := dl.FirstChild; c != nil; c = c.NextSibling {
		switch c.DataAtom {
		case atom.Dt:
			key = textContent(c)
		case atom.Dd:
			if key != "" {
				out = append(out, model.AnnotationFor(key, textContent(c)))
			}
			key = ""
		}
	}
	return out
}

func (f *HTML) stropheFromSection(section *html.Node) (*model.Strophe, error) {
	st := &model.Strophe{Mark: model.EmptyMark{}}
	if mark := attr(section, "data-mark"); mark != "" {
		m, ok := f.sheet.markFor(mark)
		if !ok {
			return nil, NewParseError("invalid strophe mark", mark)
		}
		st.Mark = m
	}

	lines := findAll(section, classMatcher("line"))
	for i, line := range lines {
		for _, chunk := range findAll(line, classMatcher("chunk")) {
			if hasClass(chunk, "continued") && len(st.Segments) > 0 {
				last := len(st.Segments) - 1
				st.Segments[last] = st.Segments[last].Append(rawText(chunk))
				continue
			}
			seg, err := segmentFromChunk(chunk)
			if err != nil {
				return nil, err
			}
			st.Segments = append(st.Segments, seg)
		}
		if i == len(lines)-1 {
			break
		}
		if len(st.Segments) == 0 {
			st.Segments = append(st.Segments, model.PlainSegment{Content: "\n"})
			continue
		}
		last := len(st.Segments) - 1
		st.Segments[last] = st.Segments[last].Append("\n")
	}
	return st, nil
}

func segmentFromChunk(chunk *html.Node) (model.Segment, error) {
	var chordText string
	var lyrics strings.Builder
	for c := chunk.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && hasClass(c, "chord") {
			chordText = textContent(c)
			continue
		}
		lyrics.WriteString(rawText(c))
	}
	if chordText == "" {
		return model.PlainSegment{Content: lyrics.String()}, nil
	}
	chord, err := ParseChord(chordText)
	if err != nil {
		return nil, err
	}
	return model.ChordedSegment{Chord: chord, Content: lyrics.String()}, nil
}

// loadChordSheet reads a foreign page: the main content is converted to
// markdown, code fences and escapes are dropped, a leading "# " heading
// becomes the song heading and the rest is read as a chord sheet.
func (f *HTML) loadChordSheet(doc *html.Node) (*model.Song, error) {
	title := ""
	if n := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }); n != nil {
		title = textContent(n)
	}

	markdown, err := f.converter.ConvertString(extractMainContent(doc))
	if err != nil {
		return nil, NewParseError("convert HTML: "+err.Error(), "")
	}

	var body []string
	for _, line := range strings.Split(cleanMarkdown(markdown), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(trimmed[2:])
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		body = append(body, line)
	}

	text := strings.Join(body, "\n")
	if title != "" {
		text = strings.Repeat(" ", f.sheet.HeadingIndent) + title + "\n\n" + text
	}
	return f.sheet.Load(text)
}

// Dump renders one song as a page.
func (f *HTML) Dump(song *model.Song) (string, error) {
	return f.DumpBook([]*model.Song{song})
}

// DumpBook renders all songs into one page.
func (f *HTML) DumpBook(songs []*model.Song) (string, error) {
	pageTitle := ""
	if len(songs) > 0 {
		pageTitle, _ = songs[0].Title()
	}
	if len(songs) > 1 {
		pageTitle = "Songbook"
	}

	head := element(atom.Head, nil,
		element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}),
		element(atom.Title, nil, textNode(pageTitle)),
	)
	if f.Stylesheet != "" {
		head.AppendChild(element(atom.Link, []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: f.Stylesheet},
		}))
	}

	container := element(atom.Main, nil)
	for _, song := range songs {
		container.AppendChild(f.songArticle(song))
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html, []html.Attribute{{Key: "lang", Val: f.Lang}},
		head,
		element(atom.Body, nil, container),
	))

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (f *HTML) songArticle(song *model.Song) *html.Node {
	article := element(atom.Article, classAttr("song"))

	// Heading annotations keep their order; adjacent authors share one
	// paragraph with a span per author.
	var authors *html.Node
	for _, a := range song.Annotations {
		switch v := a.(type) {
		case model.TitleAnnotation:
			article.AppendChild(element(atom.H1, classAttr("title"), textNode(v.Title)))
			authors = nil
		case model.AuthorAnnotation:
			if authors == nil {
				authors = element(atom.P, classAttr("authors"))
				article.AppendChild(authors)
			} else {
				authors.AppendChild(textNode(", "))
			}
			authors.AppendChild(element(atom.Span, classAttr("author"), textNode(v.Name)))
		}
	}

	var annotations []*html.Node
	for _, a := range song.AnnotationsOfKind(func(a model.Annotation) bool { return !model.IsHeading(a) }) {
		key, value := annotationParts(a)
		annotations = append(annotations,
			element(atom.Dt, nil, textNode(key)),
			element(atom.Dd, nil, textNode(value)),
		)
	}
	if len(annotations) > 0 {
		article.AppendChild(element(atom.Dl, classAttr("annotations"), annotations...))
	}

	for _, item := range song.Items {
		switch v := item.(type) {
		case *model.Strophe:
			article.AppendChild(f.stropheSection(v))
		case model.Annotation:
			key, value := annotationParts(v)
			article.AppendChild(element(atom.P, classAttr("annotation"),
				element(atom.Span, classAttr("key"), textNode(key)),
				textNode(": "),
				element(atom.Span, classAttr("value"), textNode(value)),
			))
		}
	}
	return article
}

func (f *HTML) stropheSection(st *model.Strophe) *html.Node {
	section := element(atom.Section, classAttr("strophe"))
	if st.Mark != nil {
		if short := st.Mark.String(true); short != "" {
			section.Attr = append(section.Attr, html.Attribute{Key: "data-mark", Val: short})
			section.AppendChild(element(atom.Span, classAttr("mark"), textNode(short+f.sheet.StropheMarkDelimiters[0])))
		}
	}

	line := element(atom.Div, classAttr("line"))
	for _, seg := range st.Segments {
		for i, piece := range seg.SplitLines() {
			content, eol := strings.CutSuffix(piece.Text(), "\n")
			chunk := element(atom.Span, classAttr("chunk"))
			if i > 0 {
				chunk = element(atom.Span, classAttr("chunk continued"))
			} else if cs, ok := piece.(model.ChordedSegment); ok {
				chunk.AppendChild(element(atom.Span, classAttr("chord"), textNode(cs.Chord.String())))
			}
			if content != "" {
				chunk.AppendChild(textNode(content))
			}
			line.AppendChild(chunk)
			if eol {
				section.AppendChild(line)
				line = element(atom.Div, classAttr("line"))
			}
		}
	}
	if line.FirstChild != nil {
		section.AppendChild(line)
	}
	return section
}

func annotationParts(a model.Annotation) (string, string) {
	switch v := a.(type) {
	case model.AuthorAnnotation:
		return "Author", v.Name
	case model.TitleAnnotation:
		return "Title", v.Title
	case model.GenericAnnotation:
		return v.Key, v.Value
	}
	return "", ""
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func classAttr(class string) []html.Attribute {
	return []html.Attribute{{Key: "class", Val: class}}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func classMatcher(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && hasClass(n, class) }
}

// findAll returns the descendants of n matching keep in document order,
// without descending into matches.
func findAll(n *html.Node, keep func(*html.Node) bool) []*html.Node {
	var result []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if keep(c) {
				result = append(result, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return result
}

func findFirst(n *html.Node, keep func(*html.Node) bool) *html.Node {
	if found := findAll(n, keep); len(found) > 0 {
		return found[0]
	}
	return nil
}

// textContent returns the trimmed text of n and its descendants.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(rawText(n))
}

func rawText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(rawText(c))
	}
	return sb.String()
}

// extractMainContent returns the main content area of a page: the first
// main, article or [role=main] element, else the body without navigation
// chrome.
func extractMainContent(doc *html.Node) string {
	for _, selector := range []string{"main", "article", "[role=main]"} {
		if node := findFirst(doc, selectorMatcher(selector)); node != nil {
			return renderNode(node)
		}
	}

	removeElements(doc, []string{
		"nav", "header", "footer", "aside", "script", "style", "noscript",
		"iframe", "object", "embed", "form", "input", "button",
	})
	removeByClass(doc, []string{
		"nav", "navbar", "navigation", "sidebar", "menu", "toc",
		"footer", "header", "ad", "advertisement", "social", "share",
		"comments", "related", "breadcrumb",
	})

	if body := findFirst(doc, selectorMatcher("body")); body != nil {
		return renderNode(body)
	}
	return renderNode(doc)
}

// selectorMatcher supports tag names and [attr=value].
func selectorMatcher(selector string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		if strings.HasPrefix(selector, "[") && strings.HasSuffix(selector, "]") {
			key, val, ok := strings.Cut(strings.Trim(selector, "[]"), "=")
			return ok && attr(n, key) == val
		}
		return n.Data == selector
	}
}

func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
	}
	removeMatching(n, func(node *html.Node) bool {
		return node.Type == html.ElementNode && tagSet[node.Data]
	})
}

func removeByClass(n *html.Node, classes []string) {
	classSet := make(map[string]bool, len(classes))
	for _, class := range classes {
		classSet[class] = true
	}
	removeMatching(n, func(node *html.Node) bool {
		if node.Type != html.ElementNode {
			return false
		}
		for _, c := range strings.Fields(strings.ToLower(attr(node, "class"))) {
			if classSet[c] {
				return true
			}
		}
		return false
	})
}

func removeMatching(n *html.Node, match func(*html.Node) bool) {
	for _, node := range findAll(n, match) {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

// cleanMarkdown drops code fences and markdown escapes so that the text
// can be read as a chord sheet.
func cleanMarkdown(content string) string {
	content = fenceLineRe.ReplaceAllString(content, "")
	content = markdownEscapeRe.ReplaceAllString(content, "$1")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.Trim(content, "\n")
}

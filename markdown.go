package webchat

import (
	"fmt"
	"regexp"
	"strings"
)

// Render converts chat-flavored markdown to HTML. It understands tables,
// fenced and inline code, bold, italic, headers (h1-h3), blockquotes,
// horizontal rules, ordered/unordered lists and paragraphs. Everything else,
// including any HTML in the input, is escaped, so the result is safe to
// insert as the inner HTML of a message bubble.
//
// Render is total: it never returns an error or panics. If a pipeline stage
// fails, the escaped original text is returned in a single paragraph.
// It is a pure function with no shared state and is safe for concurrent use.
// Feeding its own output back in double-escapes; callers that re-render must
// keep the original plain text.
func Render(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = "<p>" + escapeHTML(text) + "</p>"
		}
	}()
	return renderPipeline(text)
}

// renderFault, when non-nil, runs at the start of the pipeline. Tests use it
// to force the recovery path in Render.
var renderFault func()

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var (
	fencedCodeRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")

	boldStarRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldScoreRe  = regexp.MustCompile(`__(.+?)__`)
	italStarRe   = regexp.MustCompile(`\*([^\s*][^*\n]*?)\*`)
	italScoreRe  = regexp.MustCompile(`_([^\s_][^_\n]*?)_`)
	hrRe         = regexp.MustCompile(`(?m)^-{3,}$`)
	blockquoteRe = regexp.MustCompile(`(?m)^&gt; (.+)$`)
	h3Re         = regexp.MustCompile(`(?m)^### (.+)$`)
	h2Re         = regexp.MustCompile(`(?m)^## (.+)$`)
	h1Re         = regexp.MustCompile(`(?m)^# (.+)$`)

	// List items are tagged with a kind attribute so the run-wrapping stage
	// can tell ordered from unordered; the attribute is stripped on wrap.
	olItemRe = regexp.MustCompile(`(?m)^\d+\. (.+)$`)
	ulItemRe = regexp.MustCompile(`(?m)^[-*] (.+)$`)
	olRunRe  = regexp.MustCompile(`(?:<li kind="ol">[^\n]*</li>\n?)+`)
	ulRunRe  = regexp.MustCompile(`(?:<li kind="ul">[^\n]*</li>\n?)+`)

	paragraphBreakRe = regexp.MustCompile(`\n{2,}`)

	// Block elements must not sit inside <p>. The cleanup stage closes and
	// reopens paragraphs around them instead, keeping the output balanced.
	blockOpen        = `(?:<h[1-3]>|<hr>|<blockquote>|<ul>|<ol>|<!--block:\d+-->)`
	blockClose       = `(?:</h[1-3]>|<hr>|</blockquote>|</ul>|</ol>|<!--block:\d+-->)`
	brAfterBlockRe   = regexp.MustCompile(`(` + blockClose + `)<br>`)
	brBeforeBlockRe  = regexp.MustCompile(`<br>(` + blockOpen + `)`)
	pBeforeBlockRe   = regexp.MustCompile(`<p>(` + blockOpen + `)`)
	pAfterBlockRe    = regexp.MustCompile(`(` + blockClose + `)</p>`)
	emptyParagraphRe = regexp.MustCompile(`<p>(?:<br>)*</p>`)
)

// placeholderPrefix returns a token prefix guaranteed absent from text, so a
// message cannot smuggle a fake placeholder into the pipeline. The alphabet
// avoids & < > and survives the escape stage untouched.
func placeholderPrefix(text string) string {
	prefix := "@@blk"
	for strings.Contains(text, prefix) {
		prefix += "@"
	}
	return prefix
}

// renderPipeline is the ordered substitution pipeline. The order is
// load-bearing: each stage assumes the invariants of the ones before it.
func renderPipeline(text string) string {
	if renderFault != nil {
		renderFault()
	}

	prefix := placeholderPrefix(text)
	token := func(i int) string {
		return fmt.Sprintf("%s:%d@@", prefix, i)
	}
	marker := func(i int) string {
		return fmt.Sprintf("<!--block:%d-->", i)
	}

	// Tables first, stashed behind placeholders so no later stage can see
	// table markup.
	s, protected := extractTables(text, token)

	// Escape everything that came from the input. Renderer-introduced tags
	// after this point are the only unescaped markup.
	s = escapeHTML(s)

	// Fenced code blocks are stashed like tables: their bodies must not pick
	// up <br>, emphasis or list tags from the stages below.
	s = fencedCodeRe.ReplaceAllStringFunc(s, func(m string) string {
		body := fencedCodeRe.FindStringSubmatch(m)[1]
		body = strings.TrimRight(body, "\n")
		protected = append(protected, "<pre><code>"+body+"</code></pre>")
		return token(len(protected) - 1)
	})

	s = inlineCodeRe.ReplaceAllString(s, "<code>$1</code>")

	// Bold before italic so ** is not half-eaten as two italics.
	s = boldStarRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = boldScoreRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italStarRe.ReplaceAllString(s, "<em>$1</em>")
	s = italScoreRe.ReplaceAllString(s, "<em>$1</em>")

	s = hrRe.ReplaceAllString(s, "<hr>")
	s = blockquoteRe.ReplaceAllString(s, "<blockquote>$1</blockquote>")

	// Most specific header first so # does not match inside ##.
	s = h3Re.ReplaceAllString(s, "<h3>$1</h3>")
	s = h2Re.ReplaceAllString(s, "<h2>$1</h2>")
	s = h1Re.ReplaceAllString(s, "<h1>$1</h1>")

	s = olItemRe.ReplaceAllString(s, `<li kind="ol">$1</li>`)
	s = wrapListRuns(s, olRunRe, "ol")
	s = ulItemRe.ReplaceAllString(s, `<li kind="ul">$1</li>`)
	s = wrapListRuns(s, ulRunRe, "ul")

	// Swap placeholders for comment markers the paragraph stages treat as
	// block elements, so a table or code block is never wrapped in <p>.
	for i := range protected {
		s = strings.Replace(s, token(i), marker(i), 1)
	}

	// Paragraphs: blank lines separate, single newlines soft-break.
	s = paragraphBreakRe.ReplaceAllString(s, "</p><p>")
	s = strings.ReplaceAll(s, "\n", "<br>")
	s = "<p>" + s + "</p>"

	// Repair paragraph boundaries around block elements.
	s = brAfterBlockRe.ReplaceAllString(s, "$1<p>")
	s = brBeforeBlockRe.ReplaceAllString(s, "</p>$1")
	s = pBeforeBlockRe.ReplaceAllString(s, "$1")
	s = pAfterBlockRe.ReplaceAllString(s, "$1")
	s = emptyParagraphRe.ReplaceAllString(s, "")

	// Restore the protected fragments, in insertion order, exactly once
	// each. A fence can swallow a table placeholder before the marker swap,
	// so sweep leftover tokens too: nothing opaque may reach the caller.
	for i, frag := range protected {
		s = strings.Replace(s, marker(i), frag, 1)
	}
	for i, frag := range protected {
		s = strings.Replace(s, token(i), frag, 1)
	}

	return s
}

// wrapListRuns wraps each maximal run of same-kind <li> lines in a single
// <ol> or <ul> and strips the internal kind attribute. One trailing newline
// is kept so the paragraph stage still sees the boundary to the next line.
func wrapListRuns(s string, runRe *regexp.Regexp, kind string) string {
	attr := ` kind="` + kind + `"`
	return runRe.ReplaceAllStringFunc(s, func(run string) string {
		trailing := strings.HasSuffix(run, "\n")
		items := strings.ReplaceAll(run, attr, "")
		items = strings.ReplaceAll(items, "\n", "")
		out := "<" + kind + ">" + items + "</" + kind + ">"
		if trailing {
			out += "\n"
		}
		return out
	})
}

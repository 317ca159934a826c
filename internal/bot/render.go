package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/m3rciful/achibot/core/telegram/callbacks"
	"github.com/m3rciful/achibot/core/telegram/format"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"
	"github.com/m3rciful/achibot/core/telegram/keyboard"
	"github.com/m3rciful/achibot/internal/classifier"
	"github.com/m3rciful/achibot/internal/navigation"
)

// Callback keys.
const (
	cbNav     = "nav"
	cbRestart = "restart"
	cbPin     = "pin"
	cbUnpin   = "unpin"
)

const (
	promptText     = "Оберіть категорію:"
	unknownCmdText = "Вибачте, я не зрозумів вашу команду."
	restartLabel   = "🔄 Почати знову"
	crumbSep       = " › "

	pinButtonsPerRow = 3
	maxPinButtons    = 24
)

// Reply is one outbound message produced by the service.
type Reply struct {
	Text     string
	Markdown bool
	Buttons  [][]keyboard.InlineBtn
	// Edit replaces the message a callback came from instead of sending.
	Edit bool
	// Notice is shown as a callback toast when the reply answers a button.
	Notice string
}

// navToken encodes a menu choice as "<depth>:<menu>:<index>" or
// "<depth>:<menu>:back", where menu is menuKey of the menu the button was
// drawn on. Labels are too long for the 64-byte callback data limit.
func navToken(menu string, depth, index int) string {
	return strconv.Itoa(depth) + ":" + menu + ":" + strconv.Itoa(index)
}

func backToken(menu string, depth int) string {
	return strconv.Itoa(depth) + ":" + menu + ":back"
}

// menuKey fingerprints a menu by classifier and path.
func menuKey(name string, path []string) string {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	for _, l := range path {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(l)
	}
	return strconv.FormatUint(d.Sum64()&0xffffffff, 36)
}

func viewKey(name string, v navigation.View) string {
	path := make([]string, len(v.Breadcrumbs))
	for i, c := range v.Breadcrumbs {
		path[i] = c.Label
	}
	return menuKey(name, path)
}

type token struct {
	depth int
	menu  string
	index int
	back  bool
}

func parseToken(s string) (token, error) {
	bad := fmt.Errorf("bot: malformed menu token %q", s)
	d, rest, err := callbacks.SplitPair(s, ":")
	if err != nil {
		return token{}, bad
	}
	menu, rest, err := callbacks.SplitPair(rest, ":")
	if err != nil {
		return token{}, bad
	}
	depth, err := strconv.Atoi(d)
	if err != nil || depth < 0 {
		return token{}, bad
	}
	if rest == "back" {
		return token{depth: depth, menu: menu, back: true}, nil
	}
	index, err := strconv.Atoi(rest)
	if err != nil || index < 0 {
		return token{}, bad
	}
	return token{depth: depth, menu: menu, index: index}, nil
}

func header(title string, crumbs []navigation.Crumb) string {
	var b strings.Builder
	b.WriteString("*")
	b.WriteString(format.MD(title))
	b.WriteString("*\n")
	if len(crumbs) > 0 {
		labels := make([]string, len(crumbs))
		for i, c := range crumbs {
			labels[i] = format.MD(c.Label)
		}
		b.WriteString(strings.Join(labels, crumbSep))
		b.WriteString("\n")
	}
	return b.String()
}

// menuReply renders a non-terminal view: one button per child and a back
// button below the root.
func menuReply(name, title string, v navigation.View) Reply {
	rows := make([][]keyboard.InlineBtn, 0, len(v.Options))
	menu := viewKey(name, v)
	i := 0
	for _, o := range v.Options {
		if o.Back {
			rows = append(rows, []keyboard.InlineBtn{{Text: o.Label, Unique: cbNav, Data: backToken(menu, v.Depth)}})
			continue
		}
		rows = append(rows, []keyboard.InlineBtn{{Text: o.Label, Unique: cbNav, Data: navToken(menu, v.Depth, i)}})
		i++
	}
	return Reply{
		Text:     header(title, v.Breadcrumbs) + promptText,
		Markdown: true,
		Buttons:  rows,
	}
}

func recordText(r classifier.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Код: %s*\nНазва: %s", format.MD(r.Code), format.MD(r.NameUA))
	if r.NameEN != "" && r.NameEN != r.NameUA {
		fmt.Fprintf(&b, "\n_%s_", format.MD(r.NameEN))
	}
	return b.String()
}

func pinButtons(name string, recs []classifier.Record) [][]keyboard.InlineBtn {
	btns := make([]keyboard.InlineBtn, 0, min(len(recs), maxPinButtons))
	for _, r := range recs {
		if len(btns) == maxPinButtons {
			break
		}
		btns = append(btns, keyboard.InlineBtn{Text: "📌 " + r.Code, Unique: cbPin, Data: name + ":" + r.Code})
	}
	return keyboard.Chunk(btns, pinButtonsPerRow)
}

// recordsReply renders a terminal view. Long result lists are split into
// several messages; the keyboard rides on the last one.
func recordsReply(name, title string, v navigation.View) []Reply {
	blocks := make([]string, len(v.Records))
	for i, r := range v.Records {
		blocks[i] = recordText(r)
	}
	text := header(title, v.Breadcrumbs) + "\n" + strings.Join(blocks, "\n\n")

	rows := pinButtons(name, v.Records)
	rows = append(rows, []keyboard.InlineBtn{
		{Text: backLabel(v), Unique: cbNav, Data: backToken(viewKey(name, v), v.Depth)},
		{Text: restartLabel, Unique: cbRestart, Data: name},
	})

	return withButtons(text, rows)
}

// withButtons splits Markdown text into message-sized replies and puts the
// keyboard on the last one.
func withButtons(text string, rows [][]keyboard.InlineBtn) []Reply {
	chunks := format.Split(text, tghelpers.MaxMessageRunes)
	out := make([]Reply, len(chunks))
	for i, c := range chunks {
		out[i] = Reply{Text: c, Markdown: true}
	}
	out[len(out)-1].Buttons = rows
	return out
}

func backLabel(v navigation.View) string {
	for _, o := range v.Options {
		if o.Back {
			return o.Label
		}
	}
	return navigation.DefaultBackLabel
}

// hitText renders a record found by search or code lookup with its path.
func hitText(title string, h classifier.Hit) string {
	labels := make([]string, len(h.Path))
	for i, l := range h.Path {
		labels[i] = format.MD(l)
	}
	return fmt.Sprintf("*%s*\n%s\n\n%s", format.MD(title), strings.Join(labels, crumbSep), recordText(h.Record))
}

func textReply(s string) Reply { return Reply{Text: s} }

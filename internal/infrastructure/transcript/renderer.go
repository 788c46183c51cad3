package transcript

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sportello-bot/sportello/internal/domain/platform"
	transcriptdomain "github.com/sportello-bot/sportello/internal/domain/transcript"
	tmplloader "github.com/sportello-bot/sportello/internal/infrastructure/template"
	"github.com/sportello-bot/sportello/internal/shared/biztime"
	"github.com/sportello-bot/sportello/internal/shared/services/markdown"
)

const defaultPage = `<!DOCTYPE html>
<html lang="it">
<head>
<meta charset="utf-8">
<title>{{.ChannelName}}</title>
<style>
body{font-family:system-ui,sans-serif;background:#313338;color:#dbdee1;margin:0;padding:24px}
header{border-bottom:1px solid #4e5058;margin-bottom:16px}
.msg{display:flex;gap:12px;padding:6px 0}
.author{font-weight:600;color:#f2f3f5}
.bot{font-size:11px;background:#5865f2;color:#fff;border-radius:3px;padding:0 4px;margin-left:4px}
.time{font-size:12px;color:#949ba4;margin-left:6px}
.embed{border-left:4px solid #ed4245;background:#2b2d31;padding:8px 12px;margin-top:4px;border-radius:4px}
a{color:#00a8fc}
</style>
</head>
<body>
<header>
<h1>#{{.ChannelName}}</h1>
<p>{{.GuildName}} · {{len .Messages}} messaggi · chiuso {{.ClosedAt}}</p>
</header>
{{range .Messages}}<div class="msg"><div>
<span class="author">{{.Author}}</span>{{if .Bot}}<span class="bot">BOT</span>{{end}}<span class="time">{{.Time}}</span>
<div class="content">{{.Content}}</div>
{{range .Embeds}}<div class="embed">{{if .Title}}<strong>{{.Title}}</strong>{{end}}{{.Description}}</div>{{end}}
{{range .Attachments}}<div><a href="{{.URL}}" rel="nofollow">{{.Name}}</a></div>{{end}}
</div></div>
{{end}}
</body>
</html>
`

type pageMessage struct {
	Author      string
	Bot         bool
	Time        string
	Content     template.HTML
	Embeds      []pageEmbed
	Attachments []platform.Attachment
}

type pageEmbed struct {
	Title       string
	Description template.HTML
}

type page struct {
	GuildName   string
	ChannelName string
	ClosedAt    string
	Messages    []pageMessage
}

// HTMLRenderer renders message markdown with goldmark and sanitizes it with
// bluemonday before it reaches the page template.
type HTMLRenderer struct {
	md   markdown.MarkdownService
	page *template.Template
}

var _ transcriptdomain.Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer uses the operator's custom transcript template when the
// loader has one.
func NewHTMLRenderer(md markdown.MarkdownService, loader *tmplloader.Loader) (*HTMLRenderer, error) {
	text := defaultPage
	if custom, ok := loader.Get(tmplloader.NameTranscript); ok {
		text = custom
	}
	t, err := template.New("transcript").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse transcript template: %w", err)
	}
	return &HTMLRenderer{md: md, page: t}, nil
}

func (r *HTMLRenderer) Render(ctx context.Context, src transcriptdomain.Source) ([]byte, error) {
	p := page{
		GuildName:   src.GuildName,
		ChannelName: src.ChannelName,
		ClosedAt:    src.ClosedAt.In(biztime.Location()).Format("02/01/2006 15:04"),
		Messages:    make([]pageMessage, 0, len(src.Messages)),
	}

	for _, m := range src.Messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.PinNotice {
			continue
		}
		content, err := r.md.ToHTMLSanitized(m.Content)
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", m.ID, err)
		}
		pm := pageMessage{
			Author:      m.AuthorName,
			Bot:         m.AuthorBot,
			Time:        m.Timestamp.In(biztime.Location()).Format("02/01/2006 15:04"),
			Content:     template.HTML(content),
			Attachments: m.Attachments,
		}
		for _, e := range m.Embeds {
			desc, err := r.md.ToHTMLSanitized(e.Description)
			if err != nil {
				return nil, fmt.Errorf("render embed of %s: %w", m.ID, err)
			}
			pm.Embeds = append(pm.Embeds, pageEmbed{Title: e.Title, Description: template.HTML(desc)})
		}
		p.Messages = append(p.Messages, pm)
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("execute transcript template: %w", err)
	}
	return buf.Bytes(), nil
}

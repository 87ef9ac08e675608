// Package render implements the fragment renderer the chat core hands
// its structured event data to. Fragments are small HTML partials the
// frontend swaps in as-is.
package render

import (
	"bytes"
	"html/template"

	"github.com/Ashika2003/Chat-App/internal/core/domain"
)

const messageTmpl = `<div class="chat-message{{if .Mine}} chat-message-mine{{end}}" id="message-{{.Message.ID}}">
  <span class="author">{{.AuthorName}}</span>
  <p class="body">{{.Message.Body}}</p>
</div>`

const onlineCountTmpl = `<div class="online-count" id="online-count-{{.Room.Name}}">
  <span class="count">{{.Count}}</span>
  <ul class="roster">{{range .Authors}}<li>{{.Username}}</li>{{end}}</ul>
</div>`

const onlineStatusTmpl = `<div class="online-status" id="online-status">
  <span class="indicator{{if .OnlineInChats}} indicator-active{{end}}"></span>
  <ul class="online-users">{{range .OnlineUsers}}<li>{{.Username}}</li>{{end}}</ul>
  <ul class="public-users">{{range .PublicChatUsers}}<li>{{.Username}}</li>{{end}}</ul>
</div>`

type HTMLRenderer struct {
	message      *template.Template
	onlineCount  *template.Template
	onlineStatus *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		message:      template.Must(template.New("message").Parse(messageTmpl)),
		onlineCount:  template.Must(template.New("online_count").Parse(onlineCountTmpl)),
		onlineStatus: template.Must(template.New("online_status").Parse(onlineStatusTmpl)),
	}
}

func (r *HTMLRenderer) RenderMessage(view domain.MessageView) ([]byte, error) {
	data := struct {
		Message    *domain.Message
		Mine       bool
		AuthorName string
	}{
		Message:    view.Message,
		Mine:       view.Viewer != nil && view.Message.AuthorID == view.Viewer.ID,
		AuthorName: view.Message.AuthorID,
	}
	var buf bytes.Buffer
	if err := r.message.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) RenderOnlineCount(view domain.OnlineCountView) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.onlineCount.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) RenderOnlineStatus(view domain.OnlineStatusView) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.onlineStatus.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

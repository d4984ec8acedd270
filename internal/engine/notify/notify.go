// Package notify tells parents when their child enters or leaves school.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"
)

type Kind string

const (
	KindEntry Kind = "entry"
	KindExit  Kind = "exit"
)

// Event is one gate crossing of a student.
type Event struct {
	StudentName string
	Kind        Kind
	At          time.Time
}

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

//go:embed templates/*.html
var templateFS embed.FS

var htmlTemplate = template.Must(template.ParseFS(templateFS, "templates/notification.html"))

type templateData struct {
	Institution string
	Body        string
	Year        int
}

// Subject and Text follow the fixed wording parents already receive.
func (e Event) Subject() string {
	if e.Kind == KindExit {
		return "Notificación de Salida - " + e.StudentName
	}
	return "Notificación de Ingreso - " + e.StudentName
}

func (e Event) Text() string {
	clock := e.At.Format("15:04:05")
	if e.Kind == KindExit {
		return fmt.Sprintf("%s se retiró a las %s", e.StudentName, clock)
	}
	return fmt.Sprintf("%s ingresó a las %s", e.StudentName, clock)
}

// BuildMessage renders the plain and HTML bodies for one recipient.
func BuildMessage(e Event, to, institution string) (Message, error) {
	if e.Kind != KindEntry && e.Kind != KindExit {
		return Message{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}

	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, templateData{
		Institution: institution,
		Body:        e.Text(),
		Year:        e.At.Year(),
	})
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: e.Subject(),
		Text:    e.Text(),
		HTML:    buf.String(),
	}, nil
}

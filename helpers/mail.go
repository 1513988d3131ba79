package helpers

import (
	"bytes"
	"io"

	"bitbucket.org/tastebringers/backend/models"
	"gopkg.in/gomail.v2"
)

type EmailData struct {
	EmailTo      string
	NameTo       string
	EmailFrom    string
	NameFrom     string
	Subject      string
	TemplateName string
	FileName     string
	FileContent  []byte
	AwsSMTP      *gomail.Dialer
}

// Message renders the template with data and builds the e-mail.
func (ed *EmailData) Message(data interface{}) (*gomail.Message, error) {
	var tpl bytes.Buffer
	if err := templates.ExecuteTemplate(&tpl, ed.TemplateName, data); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()

	if ed.FileContent != nil {
		m.Attach(ed.FileName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(ed.FileContent)
			return err
		}))
	}

	m.SetHeader("From", m.FormatAddress(ed.EmailFrom, ed.NameFrom))
	m.SetHeader("To", m.FormatAddress(ed.EmailTo, ed.NameTo))
	m.SetHeader("Subject", ed.Subject)
	m.SetBody("text/html", tpl.String())
	return m, nil
}

func (ed *EmailData) SendEmail(data interface{}) error {
	m, err := ed.Message(data)
	if err != nil {
		return err
	}
	return ed.AwsSMTP.DialAndSend(m)
}

// ReceiptMailData is the body of the e-mail that carries a receipt.
func ReceiptMailData(ticket *models.TicketDetail, restaurant Restaurant) interface{} {
	data := struct {
		Restaurant string
		OrderID    int
		Code       string
		Total      string
		Method     string
	}{
		Restaurant: restaurant.Name,
		OrderID:    ticket.OrderID,
		Code:       ticket.Code,
		Total:      ticket.Total.StringFixed(2),
	}
	if ticket.Method != nil {
		data.Method = ticket.Method.Name
	}
	return data
}

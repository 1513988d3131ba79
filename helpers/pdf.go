package helpers

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"image"
	"image/png"
	"strings"

	"bitbucket.org/tastebringers/backend/models"
	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	ConstHTMLNewPage = `
	<div class="new-page"></div>
	`

	constLayoutReceiptDate = "02-01-2006 15:04"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type RequestPdf struct {
	bodies []string
}

func (r *RequestPdf) ParseTemplate(templateName string, data interface{}) error {
	buf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(buf, templateName, data); err != nil {
		return err
	}
	r.bodies = append(r.bodies, buf.String())
	return nil
}

func (r *RequestPdf) HTML() []byte {
	return []byte(strings.Join(r.bodies, ConstHTMLNewPage))
}

// GeneratePDF needs the wkhtmltopdf binary on the PATH.
func (r *RequestPdf) GeneratePDF() (*bytes.Buffer, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, errors.Wrap(err, "wkhtmltopdf unavailable")
	}

	pdfg.AddPage(wkhtmltopdf.NewPageReader(bytes.NewReader(r.HTML())))

	if err := pdfg.Create(); err != nil {
		return nil, err
	}

	return pdfg.Buffer(), nil
}

type Restaurant struct {
	Name    string
	Address string
}

type receiptHTML struct {
	Restaurant string
	Address    string
	Code       string
	OrderID    int
	Date       string
	Method     string
	Total      string
	Items      []receiptItemHTML
	Payments   []receiptPaymentHTML
	QR         template.URL
}

type receiptItemHTML struct {
	Name     string
	Quantity int
	Subtotal string
}

type receiptPaymentHTML struct {
	Method string
	Amount string
	PaidAt string
}

func newReceiptHTML(ticket *models.TicketDetail, restaurant Restaurant, stripAccents bool) (*receiptHTML, error) {
	text := func(s string) string {
		if stripAccents {
			return RemoveAccents(s)
		}
		return s
	}

	img, err := qrcode.New(ticket.Code, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodeImage(img.Image(256))
	if err != nil {
		return nil, err
	}

	receipt := &receiptHTML{
		Restaurant: text(restaurant.Name),
		Address:    text(restaurant.Address),
		Code:       ticket.Code,
		OrderID:    ticket.OrderID,
		Date:       ticket.Created.Format(constLayoutReceiptDate),
		Total:      ticket.Total.StringFixed(2),
		QR:         template.URL("data:image/png;base64," + encoded),
	}
	if ticket.Method != nil {
		receipt.Method = text(ticket.Method.Name)
	}

	if ticket.Order != nil {
		receipt.Date = ticket.Order.Created.Format(constLayoutReceiptDate)
		for _, item := range ticket.Order.Items {
			line := receiptItemHTML{
				Quantity: item.Quantity,
				Subtotal: item.Subtotal.StringFixed(2),
			}
			if item.Menu != nil {
				line.Name = text(item.Menu.Name)
			}
			receipt.Items = append(receipt.Items, line)
		}
		for _, payment := range ticket.Order.Payments {
			line := receiptPaymentHTML{
				Amount: payment.Amount.StringFixed(2),
				PaidAt: payment.PaidAt.Format(constLayoutReceiptDate),
			}
			if payment.Method != nil {
				line.Method = text(payment.Method.Name)
			}
			receipt.Payments = append(receipt.Payments, line)
		}
	}

	return receipt, nil
}

// GenerateReceiptHTML renders the printable receipt of a ticket.
func GenerateReceiptHTML(ticket *models.TicketDetail, restaurant Restaurant) ([]byte, error) {
	receipt, err := newReceiptHTML(ticket, restaurant, false)
	if err != nil {
		return nil, err
	}

	r := RequestPdf{}
	if err := r.ParseTemplate("receipt.html", receipt); err != nil {
		return nil, err
	}

	return r.HTML(), nil
}

func GenerateReceiptPDF(ticket *models.TicketDetail, restaurant Restaurant) (*bytes.Buffer, error) {
	receipt, err := newReceiptHTML(ticket, restaurant, true)
	if err != nil {
		return nil, err
	}

	r := RequestPdf{}
	if err := r.ParseTemplate("receipt.html", receipt); err != nil {
		return nil, err
	}

	mem, err := r.GeneratePDF()
	if err != nil {
		return nil, err
	}

	return mem, nil
}

func EncodeImage(m image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

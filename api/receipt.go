package api

import (
	"context"
	"fmt"

	"bitbucket.org/tastebringers/backend/config"
	"bitbucket.org/tastebringers/backend/helpers"
	"bitbucket.org/tastebringers/backend/logger"
	log "github.com/sirupsen/logrus"
)

// publishReceipt uploads and mails the receipt of a freshly issued ticket.
// It runs after the payment response, so failures are only logged.
func publishReceipt(ctx *config.AppContext, entry *log.Entry, ticketID int) {
	entry = entry.WithField("ticket_id", ticketID)
	c := logger.NewContext(context.Background(), entry)

	ticket, err := ctx.Tickets.Get(c, ticketID)
	if err != nil {
		entry.WithError(err).Error("failed loading ticket for receipt")
		return
	}

	restaurant := ctx.Config.RestaurantInfo()
	pdfBuffer, err := helpers.GenerateReceiptPDF(ticket, restaurant)
	if err != nil {
		entry.WithError(err).Error("failed generating receipt pdf")
		return
	}

	if ctx.AwsS3 != nil {
		key := fmt.Sprintf("%s/%s.pdf", ctx.Config.AwsS3.S3PathTicket, ticket.Code)
		url, err := helpers.AddFileToS3(ctx.AwsS3, ctx.Config.AwsS3.S3Bucket, key, pdfBuffer, "application/pdf")
		if err != nil {
			entry.WithError(err).Error("failed uploading receipt")
		} else {
			entry.WithField("url", url).Info("receipt uploaded")
		}
	}

	if ctx.AwsSMTP != nil && ctx.Config.Mail.ReceiptsTo != "" {
		ed := &helpers.EmailData{
			EmailTo:      ctx.Config.Mail.ReceiptsTo,
			EmailFrom:    ctx.Config.Mail.EmailFrom,
			NameFrom:     ctx.Config.Mail.NameFrom,
			Subject:      fmt.Sprintf("%s %s", ctx.Config.Mail.ReceiptSubject, ticket.Code),
			TemplateName: "receipt_mail.html",
			FileName:     ticket.Code + ".pdf",
			FileContent:  pdfBuffer.Bytes(),
			AwsSMTP:      ctx.AwsSMTP,
		}
		if err := ed.SendEmail(helpers.ReceiptMailData(ticket, restaurant)); err != nil {
			entry.WithError(err).Error("failed sending receipt email")
			return
		}
		entry.Info("receipt email sent")
	}
}

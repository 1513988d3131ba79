package middlewares

var Responses = struct {
	FailedValidations   *NewRM
	InternalServerError *NewRM
	InvalidRoles        *NewRM
	InvalidTicketID     *NewRM
	OrderNotFound       *NewRM
	TicketNotFound      *NewRM
	Overpayment         *NewRM
	ConcurrencyConflict *NewRM
	StorageUnavailable  *NewRM
	ReceiptUnavailable  *NewRM
}{
	FailedValidations: &NewRM{
		Language.English: "Failed field validations",
		Language.Spanish: "Las validaciones de los campos fallaron",
	},
	InternalServerError: &NewRM{
		Language.English: "Internal server error",
		Language.Spanish: "Problemas con el servidor",
	},
	InvalidRoles: &NewRM{
		Language.English: "Invalid roles",
		Language.Spanish: "No tienes permiso para realizar esta acción",
	},
	InvalidTicketID: &NewRM{
		Language.English: "Invalid ticket id",
		Language.Spanish: "El id del ticket no es válido",
	},
	OrderNotFound: &NewRM{
		Language.English: "Order not found",
		Language.Spanish: "No se encontró el pedido",
	},
	TicketNotFound: &NewRM{
		Language.English: "Ticket not found",
		Language.Spanish: "No se encontró el ticket",
	},
	Overpayment: &NewRM{
		Language.English: "The payment exceeds the order total",
		Language.Spanish: "El pago excede el total del pedido",
	},
	ConcurrencyConflict: &NewRM{
		Language.English: "The order is being paid from another terminal, try again",
		Language.Spanish: "El pedido se está pagando desde otra terminal, intenta de nuevo",
	},
	StorageUnavailable: &NewRM{
		Language.English: "Service unavailable, try again",
		Language.Spanish: "Servicio no disponible, intenta de nuevo",
	},
	ReceiptUnavailable: &NewRM{
		Language.English: "Could not generate the receipt",
		Language.Spanish: "No se pudo generar el comprobante",
	},
}

type NewRM map[string]string

var Language = struct {
	English string
	Spanish string
}{
	English: "en",
	Spanish: "es",
}

var LanguageMap = map[string]string{
	Language.Spanish: "Spanish",
	Language.English: "English",
}

// Get returns the message in lang, falling back to Spanish.
func (rm *NewRM) Get(lang string) string {
	if rm == nil {
		return ""
	}
	if msg, ok := (*rm)[lang]; ok {
		return msg
	}
	return (*rm)[Language.Spanish]
}

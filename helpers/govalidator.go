package helpers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

func init() {
	govalidator.AddCustomRule("positive", func(field string, rule string, message string, value interface{}) error {
		var positive bool
		switch v := value.(type) {
		case int:
			positive = v > 0
		case int64:
			positive = v > 0
		case float64:
			positive = v > 0
		case string:
			if v == "" {
				return nil
			}
			positive = positiveDecimal(v)
		case json.Number:
			if v == "" {
				return nil
			}
			positive = positiveDecimal(v.String())
		default:
			return nil
		}
		if !positive {
			if message != "" {
				return fmt.Errorf(message)
			}
			return fmt.Errorf("The %s field must be a number higher than 0", field)
		}
		return nil
	})
	govalidator.AddCustomRule("datetime_RFC3339", func(field string, rule string, message string, value interface{}) error {
		date, ok := value.(string)
		if !ok || date == "" {
			return nil
		}
		if _, err := time.Parse(time.RFC3339, date); err != nil {
			if message != "" {
				return fmt.Errorf(message)
			}
			return fmt.Errorf("The %s field must be RFC3339 YYYY-MM-DDTHH:mm:ssZ date time ", field)
		}
		return nil
	})
}

func positiveDecimal(value string) bool {
	n, err := decimal.NewFromString(value)
	return err == nil && n.IsPositive()
}

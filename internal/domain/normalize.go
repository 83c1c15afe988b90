package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Field-name variants the bank uses for the same value, in lookup order.
// The first non-empty variant wins.
var (
	ExternalIDFields = []string{"ext_id", "merchant_ext_id"}
	StatusFields     = []string{"status", "result"}
	TxIDFields       = []string{"tx_id", "bank_tx_id"}
	ErrorFields      = []string{"error", "error_message"}
)

// NormalizeBankResult maps a loosely typed bank response or callback onto BankResult.
func NormalizeBankResult(fields map[string]any) BankResult {
	return BankResult{
		ExternalID: firstString(fields, ExternalIDFields),
		Status:     PayoutStatus(firstString(fields, StatusFields)),
		TxID:       firstString(fields, TxIDFields),
		Error:      firstString(fields, ErrorFields),
	}
}

func firstString(fields map[string]any, keys []string) string {
	for _, k := range keys {
		if s := stringify(fields[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if !t {
			return ""
		}
		return "true"
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

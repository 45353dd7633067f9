package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

// wireRecord is an expense as the backend serves it. The id arrives as "id"
// or, from document stores, "_id"; either may be a string or a number. Every
// field is decoded raw so one wrong-typed record cannot fail the batch.
type wireRecord struct {
	ID        json.RawMessage `json:"id"`
	MongoID   json.RawMessage `json:"_id"`
	ItemName  json.RawMessage `json:"itemName"`
	Amount    json.RawMessage `json:"amount"`
	Date      json.RawMessage `json:"date"`
	UserEmail json.RawMessage `json:"userEmail"`
}

// WireExpense is the add payload and the canonical record encoding.
type WireExpense struct {
	ID        string      `json:"id,omitempty"`
	ItemName  string      `json:"itemName"`
	Amount    json.Number `json:"amount"`
	Date      string      `json:"date"`
	UserEmail string      `json:"userEmail"`
}

// WireUser is the addUser payload.
type WireUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	AuthProvider string `json:"authProvider"`
}

// EncodeExpense renders a record in the wire form (DD-MM-YYYY date, numeric amount).
func EncodeExpense(r core.ExpenseRecord) WireExpense {
	return WireExpense{
		ID:        r.ID,
		ItemName:  r.ItemName,
		Amount:    json.Number(r.Amount.Decimal().String()),
		Date:      core.EncodeDate(r.Date),
		UserEmail: r.UserEmail,
	}
}

// EncodeNewExpense renders an add payload.
func EncodeNewExpense(e core.NewExpense) WireExpense {
	return EncodeExpense(e.Record(""))
}

// EncodeUser renders the addUser payload, lowercasing the email and
// defaulting the provider to "password".
func EncodeUser(id ledger.Identity) WireUser {
	provider := id.AuthProvider
	if provider == "" {
		provider = "password"
	}
	return WireUser{Name: id.Name, Email: core.NormalizeEmail(id.Email), AuthProvider: provider}
}

func (w wireRecord) raw() core.RawRecord {
	id := scalarText(w.ID)
	if id == "" {
		id = scalarText(w.MongoID)
	}
	return core.RawRecord{
		ID:        id,
		ItemName:  scalarText(w.ItemName),
		Amount:    scalarText(w.Amount),
		Date:      dateText(w.Date),
		UserEmail: scalarText(w.UserEmail),
	}
}

// decodeBatch parses a JSON array of records and normalizes it. A body that
// is valid JSON but not an array is treated as empty.
func decodeBatch(body []byte) (ledger.Batch, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		if len(body) > 0 && !json.Valid(body) {
			return ledger.Batch{}, &json.SyntaxError{Offset: 0}
		}
		return ledger.Batch{}, nil
	}
	var wire []wireRecord
	if err := json.Unmarshal(body, &wire); err != nil {
		return ledger.Batch{}, err
	}
	raws := make([]core.RawRecord, len(wire))
	for i, w := range wire {
		raws[i] = w.raw()
	}
	records, rejected := core.NormalizeRecords(raws)
	return ledger.Batch{Records: records, Rejected: rejected}, nil
}

// decodeCreatedID extracts an id from an addExpense response, if any.
func decodeCreatedID(body []byte) string {
	var w wireRecord
	if err := json.Unmarshal(body, &w); err != nil {
		return ""
	}
	return w.raw().ID
}

// scalarText returns the text of a JSON string or number; null, absent and
// composite values yield "".
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			var out string
			if json.Unmarshal(raw, &out) == nil {
				return out
			}
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw)
	default:
		return ""
	}
}

// dateText reads a date field. Only a JSON string can hold a DD-MM-YYYY
// date; anything else yields "" and is rejected during normalization.
func dateText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	return scalarText(raw)
}

// NewExpense validates an add payload into a typed expense.
func (w WireExpense) NewExpense() (core.NewExpense, error) {
	amount, err := core.ParseAmount(w.Amount.String())
	if err != nil {
		return core.NewExpense{}, fmt.Errorf("amount %q: %w", w.Amount, err)
	}
	date, err := core.DecodeDate(w.Date)
	if err != nil {
		return core.NewExpense{}, err
	}
	e := core.NewExpense{
		ItemName:  strings.TrimSpace(w.ItemName),
		Amount:    amount,
		Date:      date,
		UserEmail: core.NormalizeEmail(w.UserEmail),
	}
	return e, e.Validate()
}

// EncodeBatch renders the records of a batch in wire form.
func EncodeBatch(records []core.ExpenseRecord) []WireExpense {
	out := make([]WireExpense, len(records))
	for i, r := range records {
		out[i] = EncodeExpense(r)
	}
	return out
}

package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erpledger/erpledger/internal/apperr"
)

// Request is the JSON payload accepted at the API boundary. Callers send
// lines under either "lines" or the older "details" key, and name accounts
// with either "account_code" or "account_id". Normalize folds both
// conventions into PostParams.
type Request struct {
	Date          string        `json:"date,omitempty"`
	Description   string        `json:"description"`
	Reference     string        `json:"reference,omitempty"`
	ReferenceID   string        `json:"reference_id,omitempty"`
	ReferenceType string        `json:"reference_type,omitempty"`
	Lines         []RequestLine `json:"lines,omitempty"`
	Details       []RequestLine `json:"details,omitempty"`
}

// RequestLine is one line of a Request.
type RequestLine struct {
	AccountCode string          `json:"account_code,omitempty"`
	AccountID   AccountRef      `json:"account_id,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// DecodeRequest reads a JSON Request and normalizes it.
func DecodeRequest(r io.Reader) (PostParams, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return PostParams{}, apperr.Validation(apperr.ErrInvalidInput, "", "decoding request: %v", err)
	}
	return req.Normalize()
}

// Normalize converts the request into PostParams.
func (r Request) Normalize() (PostParams, error) {
	if len(r.Lines) > 0 && len(r.Details) > 0 {
		return PostParams{}, apperr.Validation(apperr.ErrInvalidInput, "details", "request has both lines and details")
	}
	src := r.Lines
	if len(src) == 0 {
		src = r.Details
	}

	ref := r.Reference
	if ref == "" {
		ref = r.ReferenceID
	} else if r.ReferenceID != "" && r.ReferenceID != ref {
		return PostParams{}, apperr.Validation(apperr.ErrInvalidInput, r.ReferenceID, "reference and reference_id differ")
	}

	params := PostParams{
		Description:   r.Description,
		Reference:     ref,
		ReferenceType: r.ReferenceType,
		Lines:         make([]Line, 0, len(src)),
	}

	if r.Date != "" {
		d, err := ParseDate(r.Date)
		if err != nil {
			return PostParams{}, apperr.Validation(apperr.ErrInvalidInput, r.Date, "invalid date")
		}
		params.Date = d
	}

	for i, l := range src {
		code, err := l.accountCode()
		if err != nil {
			return PostParams{}, apperr.Validation(apperr.ErrInvalidInput, fmt.Sprintf("line %d", i+1), "%v", err)
		}
		params.Lines = append(params.Lines, Line{AccountCode: code, Debit: l.Debit, Credit: l.Credit})
	}
	return params, nil
}

// AccountRef is an account code sent as a JSON string or number.
type AccountRef string

func (a *AccountRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = AccountRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("account_id must be a string or number")
	}
	*a = AccountRef(n.String())
	return nil
}

func (l RequestLine) accountCode() (string, error) {
	code := strings.TrimSpace(l.AccountCode)
	alias := strings.TrimSpace(string(l.AccountID))
	switch {
	case code != "" && alias != "" && code != alias:
		return "", fmt.Errorf("account_code %q and account_id %q differ", code, alias)
	case code != "":
		return code, nil
	case alias != "":
		return alias, nil
	}
	return "", fmt.Errorf("missing account")
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns a UTC time.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

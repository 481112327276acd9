package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of every date in a document.
const DateLayout = "2006-01-02"

// msk is Moscow time, which the API uses for calendar dates.
var msk = time.FixedZone("MSK", 3*60*60)

// Date is a calendar date encoded as "2006-01-02" in Moscow time. The zero
// Date is encoded as null.
type Date struct {
	time.Time
}

// NewDate returns the Moscow calendar date of t.
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// String formats d as 2006-01-02, or returns "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.In(msk).Format(DateLayout)
}

// MarshalJSON encodes d as a date string, or null for the zero Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a 2006-01-02 date in Moscow time. null yields the
// zero Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.ParseInLocation(DateLayout, s, msk)
	if err != nil {
		return fmt.Errorf("documents: bad date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// IntroduceGoods is the document reporting goods produced in the country
// being put into circulation.
type IntroduceGoods struct {
	Description    *Description `json:"description"`
	DocID          string       `json:"doc_id"`
	DocStatus      string       `json:"doc_status"`
	DocType        string       `json:"doc_type"`
	ImportRequest  *bool        `json:"import_request"`
	OwnerINN       string       `json:"owner_inn"`
	ParticipantINN string       `json:"participant_inn"`
	ProducerINN    string       `json:"producer_inn"`
	ProductionDate Date         `json:"production_date"`
	ProductionType string       `json:"production_type"`
	Products       []Product    `json:"products"`
	RegDate        Date         `json:"reg_date"`
	RegNumber      string       `json:"reg_number"`
}

// UnmarshalJSON also accepts the legacy "importRequest" key.
func (d *IntroduceGoods) UnmarshalJSON(b []byte) error {
	type plain IntroduceGoods
	aux := struct {
		*plain
		LegacyImportRequest *bool `json:"importRequest"`
	}{plain: (*plain)(d)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if d.ImportRequest == nil {
		d.ImportRequest = aux.LegacyImportRequest
	}
	return nil
}

// Description identifies the participant submitting the document. Unlike
// the rest of the document its key is camel-case.
type Description struct {
	ParticipantINN string `json:"participantInn"`
}

// Product is a single marked item of an IntroduceGoods document.
type Product struct {
	CertificateDocument       string `json:"certificate_document"`
	CertificateDocumentDate   Date   `json:"certificate_document_date"`
	CertificateDocumentNumber string `json:"certificate_document_number"`
	OwnerINN                  string `json:"owner_inn"`
	ProducerINN               string `json:"producer_inn"`
	ProductionDate            Date   `json:"production_date"`
	TNVEDCode                 string `json:"tnved_code"`
	UITCode                   string `json:"uit_code"`
	UITUCode                  string `json:"uitu_code"`
}

// CreateRequest is the body of a document-creation call. ProductDocument
// holds the encoded document itself.
type CreateRequest struct {
	DocumentFormat  DocumentFormat `json:"document_format"`
	ProductDocument string         `json:"product_document"`
	ProductGroup    ProductGroup   `json:"product_group"`
	Signature       string         `json:"signature"`
	Type            DocumentType   `json:"type"`
}

// CreateResponse is returned for an accepted document. Value holds the
// identifier of the created document.
type CreateResponse struct {
	Value        string `json:"value"`
	Code         string `json:"code"`
	ErrorMessage string `json:"error_message"`
	Description  string `json:"description"`
}

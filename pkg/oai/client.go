// Package oai implements the subset of the OAI-PMH protocol needed to
// harvest DCAT records from the repository: GetRecord, ListIdentifiers and
// ListRecords with resumption-token pagination.
package oai

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
	"github.com/mittagessen/HTRMoPo/pkg/record"
)

const (
	// MetadataPrefix selects the DCAT serialization of harvested records.
	MetadataPrefix = "dcat"
	// ModelSet is the OAI set holding the model repository community.
	ModelSet = "user-ocr_models"

	// errNoRecordsMatch is the OAI error code for an empty (but well
	// formed) selective harvest. Treated as success with zero records.
	errNoRecordsMatch = "noRecordsMatch"
	errIDDoesNotExist = "idDoesNotExist"
)

// Client talks to one OAI-PMH endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a harvesting client for the given OAI-PMH endpoint.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// HTTPError is a non-2xx response from the OAI endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("OAI request failed with status %d: %s", e.Status, e.Body)
}

// ProtocolError is an OAI-level error condition reported inside a 200
// response envelope.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("OAI error %s: %s", e.Code, e.Message)
}

// IsNotFound reports whether an error means the requested identifier has no
// OAI record, which is the trigger for the concept-DOI fallback.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return true
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return protoErr.Code == errIDDoesNotExist
	}
	return false
}

// Header is the OAI header of a harvested item.
type Header struct {
	Identifier string
	Datestamp  time.Time
	Deleted    bool
}

// Harvest is the result of a list operation.
type Harvest struct {
	// ResponseDate is the server timestamp of the (first) response
	// envelope; the listing cache uses it as the next harvest's lower
	// bound.
	ResponseDate time.Time
	Records      []*record.DCATRecord
}

// envelope mirrors the OAI-PMH response document.
type envelope struct {
	XMLName      xml.Name  `xml:"OAI-PMH"`
	ResponseDate string    `xml:"responseDate"`
	Error        *oaiError `xml:"error"`
	GetRecord    *struct {
		Record oaiRecord `xml:"record"`
	} `xml:"GetRecord"`
	ListRecords *struct {
		Records         []oaiRecord `xml:"record"`
		ResumptionToken string      `xml:"resumptionToken"`
	} `xml:"ListRecords"`
	ListIdentifiers *struct {
		Headers         []oaiHeader `xml:"header"`
		ResumptionToken string      `xml:"resumptionToken"`
	} `xml:"ListIdentifiers"`
}

type oaiError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type oaiHeader struct {
	Identifier string `xml:"identifier"`
	Datestamp  string `xml:"datestamp"`
	Status     string `xml:"status,attr"`
}

type oaiRecord struct {
	Header   oaiHeader `xml:"header"`
	Metadata struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"metadata"`
}

// datestampLayouts covers the two granularities OAI-PMH allows.
var datestampLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDatestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range datestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (c *Client) request(ctx context.Context, params url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building OAI request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OAI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var env envelope
	if err := xml.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding OAI response: %w", err)
	}
	return &env, nil
}

func (env *envelope) responseDate() time.Time {
	t, err := parseDatestamp(env.ResponseDate)
	if err != nil {
		logging.Debugf("Unparseable OAI response date %q: %v", env.ResponseDate, err)
		return time.Time{}
	}
	return t
}

func toDCAT(r oaiRecord) (*record.DCATRecord, error) {
	deleted := r.Header.Status == "deleted"
	if deleted {
		return &record.DCATRecord{Deleted: true}, nil
	}
	rec, err := record.ParseDCAT(r.Metadata.Inner)
	if err != nil {
		return nil, err
	}
	rec.Datestamp, err = parseDatestamp(r.Header.Datestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing datestamp of %s: %w", r.Header.Identifier, err)
	}
	return rec, nil
}

// GetRecord fetches a single record by OAI identifier.
func (c *Client) GetRecord(ctx context.Context, identifier string) (*record.DCATRecord, error) {
	params := url.Values{
		"verb":           {"GetRecord"},
		"identifier":     {identifier},
		"metadataPrefix": {MetadataPrefix},
	}
	env, err := c.request(ctx, params)
	if err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, &ProtocolError{Code: env.Error.Code, Message: env.Error.Message}
	}
	if env.GetRecord == nil {
		return nil, fmt.Errorf("OAI response has no GetRecord element")
	}
	return toDCAT(env.GetRecord.Record)
}

// ListOptions filters a list operation.
type ListOptions struct {
	// From is an optional ISO-8601 lower bound on the record datestamp.
	From string
}

// ListIdentifiers harvests the headers of all matching records.
// noRecordsMatch yields an empty slice and no error.
func (c *Client) ListIdentifiers(ctx context.Context, opts ListOptions) ([]Header, error) {
	params := url.Values{
		"verb":           {"ListIdentifiers"},
		"metadataPrefix": {MetadataPrefix},
		"set":            {ModelSet},
	}
	if opts.From != "" {
		params.Set("from", opts.From)
	}

	var headers []Header
	for {
		env, err := c.request(ctx, params)
		if err != nil {
			return nil, err
		}
		if env.Error != nil {
			if env.Error.Code == errNoRecordsMatch {
				return headers, nil
			}
			return nil, &ProtocolError{Code: env.Error.Code, Message: env.Error.Message}
		}
		if env.ListIdentifiers == nil {
			return nil, fmt.Errorf("OAI response has no ListIdentifiers element")
		}
		for _, h := range env.ListIdentifiers.Headers {
			stamp, err := parseDatestamp(h.Datestamp)
			if err != nil {
				return nil, fmt.Errorf("parsing datestamp of %s: %w", h.Identifier, err)
			}
			headers = append(headers, Header{
				Identifier: h.Identifier,
				Datestamp:  stamp,
				Deleted:    h.Status == "deleted",
			})
		}
		token := env.ListIdentifiers.ResumptionToken
		if token == "" {
			return headers, nil
		}
		params = url.Values{
			"verb":            {"ListIdentifiers"},
			"resumptionToken": {token},
		}
	}
}

// ListRecords harvests all matching records including their DCAT payloads.
// noRecordsMatch yields an empty harvest and no error.
func (c *Client) ListRecords(ctx context.Context, opts ListOptions) (*Harvest, error) {
	params := url.Values{
		"verb":           {"ListRecords"},
		"metadataPrefix": {MetadataPrefix},
		"set":            {ModelSet},
	}
	if opts.From != "" {
		params.Set("from", opts.From)
	}

	harvest := &Harvest{}
	for {
		env, err := c.request(ctx, params)
		if err != nil {
			return nil, err
		}
		if harvest.ResponseDate.IsZero() {
			harvest.ResponseDate = env.responseDate()
		}
		if env.Error != nil {
			if env.Error.Code == errNoRecordsMatch {
				return harvest, nil
			}
			return nil, &ProtocolError{Code: env.Error.Code, Message: env.Error.Message}
		}
		if env.ListRecords == nil {
			return nil, fmt.Errorf("OAI response has no ListRecords element")
		}
		for _, r := range env.ListRecords.Records {
			rec, err := toDCAT(r)
			if err != nil {
				logging.Warnf("Skipping unparseable record %s: %v", r.Header.Identifier, err)
				continue
			}
			if rec.Deleted {
				continue
			}
			harvest.Records = append(harvest.Records, rec)
		}
		token := env.ListRecords.ResumptionToken
		if token == "" {
			return harvest, nil
		}
		params = url.Values{
			"verb":            {"ListRecords"},
			"resumptionToken": {token},
		}
	}
}

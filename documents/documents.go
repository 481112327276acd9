package documents

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ryhazerus/apigate"
)

// EndpointIntroduceGoods is the endpoint name IntroduceGoods posts to.
const EndpointIntroduceGoods = "introduce_goods"

// Service issues document-creation calls through a shared apigate.Client,
// so they count against its rate limit and reuse its token.
type Service struct {
	api *apigate.Client
}

// New returns a Service that sends through api. The client must have an
// endpoint named EndpointIntroduceGoods.
func New(api *apigate.Client) *Service {
	return &Service{api: api}
}

// IntroduceGoods submits doc as a MANUAL LP_INTRODUCE_GOODS document for
// the given product group. signature is the detached signature of the
// encoded document.
func (s *Service) IntroduceGoods(ctx context.Context, doc *IntroduceGoods, group ProductGroup, signature string) (*CreateResponse, error) {
	if doc == nil {
		return nil, &apigate.ConfigError{Field: "document", Reason: "must not be nil"}
	}
	if !group.Valid() {
		return nil, &apigate.ConfigError{Field: "product_group", Reason: group.String() + " is not a product group"}
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, &apigate.DecodeError{Op: "encode", Err: err}
	}

	req := CreateRequest{
		DocumentFormat:  FormatManual,
		ProductDocument: string(encoded),
		ProductGroup:    group,
		Signature:       signature,
		Type:            TypeIntroduceGoods,
	}
	params := apigate.Params{}.Add("pg", group.String())

	resp, err := apigate.Call[CreateResponse](ctx, s.api, EndpointIntroduceGoods, params, req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsRejected reports whether err carries a response from the API, as
// opposed to a local or network failure.
func IsRejected(err error) bool {
	return errors.Is(err, apigate.ErrUnexpectedStatus)
}

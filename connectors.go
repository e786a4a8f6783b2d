package qualys

import (
	"context"
	"iter"
)

// ConnectorService provides CloudView AWS connector operations.
type ConnectorService interface {
	// List returns an iterator over AWS connectors, page by page until the API
	// reports the last page.
	List(ctx context.Context, opts *ConnectorListOptions, reqOpts ...RequestOption) iter.Seq2[*Connector, error]

	// Get retrieves a connector by ID.
	Get(ctx context.Context, id string, reqOpts ...RequestOption) (*Connector, error)

	// BaseAccount returns the AWS base account record used for connector setup.
	BaseAccount(ctx context.Context, reqOpts ...RequestOption) (Record, error)
}

// ConnectorListOptions configures a connector listing.
type ConnectorListOptions struct {
	// Filter is a single "key:value" expression; keys are name, description,
	// state, connector.uuid and lastSyncedOn.
	Filter   string `schema:"filter,omitempty"`
	Sort     string `schema:"sort,omitempty"`
	PageSize int    `schema:"pageSize,omitempty" validate:"gte=0,lte=1000"`
	// PageNo is the first page to fetch.
	PageNo int `schema:"pageNo,omitempty" validate:"gte=0"`
}

type connectorService struct {
	client *Client
}

func newConnectorService(c *Client) *connectorService {
	return &connectorService{client: c}
}

func (s *connectorService) List(ctx context.Context, opts *ConnectorListOptions, reqOpts ...RequestOption) iter.Seq2[*Connector, error] {
	params, err := toParams("cloudview/get_aws_connectors", wordEncoder, opts)
	if err != nil {
		return failed[*Connector](err)
	}
	return Paginate(ctx, s.client, "cloudview", "get_aws_connectors", params, ConnectorFromRecord, reqOpts...)
}

func (s *connectorService) Get(ctx context.Context, id string, reqOpts ...RequestOption) (*Connector, error) {
	if err := requireID("cloudview/get_aws_connector_details", "placeholder", id); err != nil {
		return nil, err
	}
	params := Params{"placeholder": id}
	return Execute(ctx, s.client, "cloudview", "get_aws_connector_details", params, ConnectorFromRecord, reqOpts...)
}

func (s *connectorService) BaseAccount(ctx context.Context, reqOpts ...RequestOption) (Record, error) {
	return Execute(ctx, s.client, "cloudview", "get_aws_base_account", nil, RawRecord, reqOpts...)
}

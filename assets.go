package qualys

import (
	"context"
	"iter"
	"strconv"
)

// AssetService provides Global AssetView inventory operations on the gateway.
type AssetService interface {
	// Count returns the number of assets matching opts.
	Count(ctx context.Context, opts *AssetCountOptions, reqOpts ...RequestOption) (int, error)

	// List returns an iterator over assets. When opts.Filter is set the filtered
	// listing is used. Pages are fetched lazily.
	List(ctx context.Context, opts *AssetListOptions, reqOpts ...RequestOption) iter.Seq2[*Asset, error]

	// Get retrieves a single asset by ID.
	Get(ctx context.Context, id int64, reqOpts ...RequestOption) (*Asset, error)
}

// AssetCountOptions selects the assets to count.
type AssetCountOptions struct {
	// Filter is a single "key:value" expression, e.g. "asset.name:web01".
	Filter           string `schema:"filter,omitempty"`
	LastSeenAssetID  int64  `schema:"lastSeenAssetId,omitempty" validate:"gte=0"`
	LastModifiedDate string `schema:"lastModifiedDate,omitempty"`
}

// AssetListOptions configures an asset listing.
type AssetListOptions struct {
	Filter           string   `schema:"filter,omitempty"`
	PageSize         int      `schema:"pageSize,omitempty" validate:"gte=0,lte=300"`
	IncludeFields    []string `schema:"includeFields,omitempty"`
	ExcludeFields    []string `schema:"excludeFields,omitempty"`
	LastModifiedDate string   `schema:"lastModifiedDate,omitempty"`
	// LastSeenAssetID resumes a previous listing after this asset.
	LastSeenAssetID int64 `schema:"lastSeenAssetId,omitempty" validate:"gte=0"`
}

type assetService struct {
	client *Client
}

func newAssetService(c *Client) *assetService {
	return &assetService{client: c}
}

func (s *assetService) Count(ctx context.Context, opts *AssetCountOptions, reqOpts ...RequestOption) (int, error) {
	params, err := toParams("gav/count_assets", wordEncoder, opts)
	if err != nil {
		return 0, err
	}
	return Execute(ctx, s.client, "gav", "count_assets", params, CountFromRecord, reqOpts...)
}

func (s *assetService) List(ctx context.Context, opts *AssetListOptions, reqOpts ...RequestOption) iter.Seq2[*Asset, error] {
	endpoint := "get_all_assets"
	if opts != nil && opts.Filter != "" {
		endpoint = "query_assets"
	}
	params, err := toParams("gav/"+endpoint, wordEncoder, opts)
	if err != nil {
		return failed[*Asset](err)
	}
	return Paginate(ctx, s.client, "gav", endpoint, params, AssetFromRecord, reqOpts...)
}

func (s *assetService) Get(ctx context.Context, id int64, reqOpts ...RequestOption) (*Asset, error) {
	if id <= 0 {
		return nil, &InvalidParameterError{
			ParamError: ParamError{Endpoint: "gav/get_asset", Param: "assetId", Message: "must be positive"},
			Value:      id,
		}
	}
	params := Params{"assetId": strconv.FormatInt(id, 10)}
	return Execute(ctx, s.client, "gav", "get_asset", params, AssetFromRecord, reqOpts...)
}

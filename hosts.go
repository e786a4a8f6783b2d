package qualys

import (
	"context"
	"iter"
)

// HostService provides VMDR host operations.
type HostService interface {
	// List returns an iterator over hosts. Truncated listings are followed
	// through the next-page URL the API reports.
	List(ctx context.Context, opts *HostListOptions, reqOpts ...RequestOption) iter.Seq2[*Host, error]

	// ListPages fetches at most pageLimit pages of hosts (all when pageLimit <= 0).
	ListPages(ctx context.Context, pageLimit int, opts *HostListOptions, reqOpts ...RequestOption) (*ResultCollection[*Host], error)

	// Detections returns an iterator over hosts with their vulnerability detections.
	Detections(ctx context.Context, opts *DetectionOptions, reqOpts ...RequestOption) iter.Seq2[*Host, error]
}

// HostListOptions filters a host listing. IDs and IPs accept ranges such as
// "10-20" or "10.0.0.1-10.0.0.50".
type HostListOptions struct {
	IDs             string   `schema:"ids,omitempty"`
	IPs             string   `schema:"ips,omitempty"`
	AssetGroupIDs   []string `schema:"ag_ids,omitempty"`
	AssetGroups     []string `schema:"ag_titles,omitempty"`
	Details         string   `schema:"details,omitempty" validate:"omitempty,oneof=Basic Basic/AGs All All/AGs None"`
	OSPattern       string   `schema:"os_pattern,omitempty"`
	TruncationLimit int      `schema:"truncation_limit,omitempty" validate:"gte=0,lte=1000000"`
	VMScanSince     string   `schema:"vm_scan_since,omitempty"`
	NoVMScanSince   string   `schema:"no_vm_scan_since,omitempty"`
	ShowAssetID     bool     `schema:"show_asset_id,omitempty"`
	ShowTags        bool     `schema:"show_tags,omitempty"`
	UseTags         bool     `schema:"use_tags,omitempty"`
	TagSetInclude   []string `schema:"tag_set_include,omitempty"`
}

// DetectionOptions filters a host detection listing.
type DetectionOptions struct {
	HostListOptions

	QIDs []string `schema:"qids,omitempty"`
	// Severities is a list or range, e.g. "4-5".
	Severities string `schema:"severities,omitempty"`
	// Status selects detection states: New, Active, Fixed, Re-Opened.
	Status          []string `schema:"status,omitempty"`
	ShowResults     bool     `schema:"show_results,omitempty"`
	ShowIgs         bool     `schema:"show_igs,omitempty"`
	IncludeIgnored  bool     `schema:"include_ignored,omitempty"`
	IncludeDisabled bool     `schema:"include_disabled,omitempty"`
	UpdatedSince    string   `schema:"detection_updated_since,omitempty"`
}

type hostService struct {
	client *Client
}

func newHostService(c *Client) *hostService {
	return &hostService{client: c}
}

func (s *hostService) List(ctx context.Context, opts *HostListOptions, reqOpts ...RequestOption) iter.Seq2[*Host, error] {
	params, err := toParams("vmdr/get_host_list", numericEncoder, opts)
	if err != nil {
		return failed[*Host](err)
	}
	return Paginate(ctx, s.client, "vmdr", "get_host_list", params, HostFromRecord, reqOpts...)
}

func (s *hostService) ListPages(ctx context.Context, pageLimit int, opts *HostListOptions, reqOpts ...RequestOption) (*ResultCollection[*Host], error) {
	params, err := toParams("vmdr/get_host_list", numericEncoder, opts)
	if err != nil {
		return nil, err
	}
	return ExecutePaginated(ctx, s.client, "vmdr", "get_host_list", pageLimit, params, HostFromRecord, reqOpts...)
}

func (s *hostService) Detections(ctx context.Context, opts *DetectionOptions, reqOpts ...RequestOption) iter.Seq2[*Host, error] {
	params, err := toParams("vmdr/get_hld", numericEncoder, opts)
	if err != nil {
		return failed[*Host](err)
	}
	return Paginate(ctx, s.client, "vmdr", "get_hld", params, HostFromRecord, reqOpts...)
}

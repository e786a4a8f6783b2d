package qualys

import (
	"context"
	"iter"
)

// AgentService provides Cloud Agent operations.
type AgentService interface {
	// List returns an iterator over agent host assets matching filter.
	List(ctx context.Context, filter *AgentFilter, reqOpts ...RequestOption) iter.Seq2[*Agent, error]

	// Purge uninstalls the agent on the given asset.
	Purge(ctx context.Context, assetID string, reqOpts ...RequestOption) error

	// LaunchScan starts an on-demand scan on the given agent asset.
	LaunchScan(ctx context.Context, assetID string, opts *ODSOptions, reqOpts ...RequestOption) error
}

// AgentFilter holds Cloud Agent search criteria.
type AgentFilter struct {
	Name            string `schema:"name,omitempty"`
	NameOperator    string `schema:"name_operator,omitempty"`
	OS              string `schema:"os,omitempty"`
	OSOperator      string `schema:"os_operator,omitempty"`
	TagName         string `schema:"tagName,omitempty"`
	TagID           int64  `schema:"tagId,omitempty" validate:"gte=0"`
	AgentVersion    string `schema:"agentVersion,omitempty"`
	ActivatedModule string `schema:"agentInfo_activatedModule,omitempty"`
	// LastCheckedIn is a date; LastCheckedInOperator is then required.
	LastCheckedIn         string `schema:"agentInfo_lastCheckedIn,omitempty"`
	LastCheckedInOperator string `schema:"agentInfo_lastCheckedIn_operator,omitempty"`
	// LimitResults is the page size.
	LimitResults int `schema:"limitResults,omitempty" validate:"gte=0,lte=1000"`
}

// ODSOptions configures an on-demand agent scan.
type ODSOptions struct {
	Scan              string `schema:"scan" validate:"required,oneof=Inventory_Scan Vulnerability_Scan PolicyCompliance_Scan UDC_Scan SCA_Scan SwCA_Scan"`
	OverrideConfigCPU bool   `schema:"overrideConfigCpu,omitempty"`
}

type agentService struct {
	client *Client
}

func newAgentService(c *Client) *agentService {
	return &agentService{client: c}
}

func (s *agentService) List(ctx context.Context, filter *AgentFilter, reqOpts ...RequestOption) iter.Seq2[*Agent, error] {
	params, err := toParams("cloud_agent/list_agents", wordEncoder, filter)
	if err != nil {
		return failed[*Agent](err)
	}
	return Paginate(ctx, s.client, "cloud_agent", "list_agents", params, AgentFromRecord, reqOpts...)
}

func (s *agentService) Purge(ctx context.Context, assetID string, reqOpts ...RequestOption) error {
	if err := requireID("cloud_agent/purge_agent", "placeholder", assetID); err != nil {
		return err
	}
	params := Params{"placeholder": assetID}
	_, err := ExecutePaginated(ctx, s.client, "cloud_agent", "purge_agent", 1, params, RawRecord, reqOpts...)
	return err
}

func (s *agentService) LaunchScan(ctx context.Context, assetID string, opts *ODSOptions, reqOpts ...RequestOption) error {
	if err := requireID("cloud_agent/launch_ods", "placeholder", assetID); err != nil {
		return err
	}
	if opts == nil {
		opts = &ODSOptions{}
	}
	params, err := toParams("cloud_agent/launch_ods", wordEncoder, opts)
	if err != nil {
		return err
	}
	params["placeholder"] = assetID
	_, err = ExecutePaginated(ctx, s.client, "cloud_agent", "launch_ods", 1, params, RawRecord, reqOpts...)
	return err
}


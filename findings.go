package qualys

import (
	"context"
	"iter"
)

// FindingService provides Web Application Scanning finding operations.
type FindingService interface {
	// Count returns the number of findings matching filter.
	Count(ctx context.Context, filter *FindingFilter, reqOpts ...RequestOption) (int, error)

	// List returns an iterator over findings. Pages are requested lazily with an
	// id cursor.
	List(ctx context.Context, opts *FindingListOptions, reqOpts ...RequestOption) iter.Seq2[*Finding, error]
}

// FindingFilter holds search criteria. Each field may carry an operator in its
// companion *Operator field; EQUALS is assumed when empty, except for dates,
// which require one.
type FindingFilter struct {
	QID              int64  `schema:"qid,omitempty" validate:"gte=0"`
	Name             string `schema:"name,omitempty"`
	NameOperator     string `schema:"name_operator,omitempty"`
	Type             string `schema:"type,omitempty" validate:"omitempty,oneof=VULNERABILITY SENSITIVE_CONTENT INFORMATION_GATHERED vulnerability sensitive_content information_gathered"`
	Severity         string `schema:"severity,omitempty"`
	SeverityOperator string `schema:"severity_operator,omitempty"`
	Status           string `schema:"status,omitempty"`
	StatusOperator   string `schema:"status_operator,omitempty"`
	WebAppID         int64  `schema:"webApp_id,omitempty" validate:"gte=0"`
	WebAppName       string `schema:"webApp_name,omitempty"`
	WebAppTagID      int64  `schema:"webApp_tags_id,omitempty" validate:"gte=0"`

	LastDetectedDate         string `schema:"lastDetectedDate,omitempty"`
	LastDetectedDateOperator string `schema:"lastDetectedDate_operator,omitempty"`
	FirstDetectedDate        string `schema:"firstDetectedDate,omitempty"`
	FirstDetectedOperator    string `schema:"firstDetectedDate_operator,omitempty"`
}

// FindingListOptions configures a finding listing.
type FindingListOptions struct {
	FindingFilter

	Verbose bool `schema:"verbose,omitempty"`
	// LimitResults is the page size.
	LimitResults int `schema:"limitResults,omitempty" validate:"gte=0,lte=1000"`
}

type findingService struct {
	client *Client
}

func newFindingService(c *Client) *findingService {
	return &findingService{client: c}
}

func (s *findingService) Count(ctx context.Context, filter *FindingFilter, reqOpts ...RequestOption) (int, error) {
	params, err := toParams("was/count_findings", wordEncoder, filter)
	if err != nil {
		return 0, err
	}
	return Execute(ctx, s.client, "was", "count_findings", params, CountFromRecord, reqOpts...)
}

func (s *findingService) List(ctx context.Context, opts *FindingListOptions, reqOpts ...RequestOption) iter.Seq2[*Finding, error] {
	params, err := toParams("was/get_findings", wordEncoder, opts)
	if err != nil {
		return failed[*Finding](err)
	}
	return Paginate(ctx, s.client, "was", "get_findings", params, FindingFromRecord, reqOpts...)
}

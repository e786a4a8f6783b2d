package qualys

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// recordBase keeps the source record of a decoded domain object.
type recordBase struct {
	// Raw holds the record as the API returned it, including unmodeled fields.
	Raw Record `json:"-"`
}

func (b *recordBase) setRaw(r Record) { b.Raw = r }

// Asset is a Global AssetView inventory asset.
type Asset struct {
	recordBase `mapstructure:"-"`

	ID               int64            `json:"assetId" mapstructure:"assetId"`
	UUID             string           `json:"assetUUID" mapstructure:"assetUUID"`
	HostID           int64            `json:"hostId,omitempty" mapstructure:"hostId"`
	Name             string           `json:"assetName" mapstructure:"assetName"`
	Type             string           `json:"assetType,omitempty" mapstructure:"assetType"`
	Address          string           `json:"address,omitempty" mapstructure:"address"`
	DNSName          string           `json:"dnsName,omitempty" mapstructure:"dnsName"`
	NetbiosName      string           `json:"netbiosName,omitempty" mapstructure:"netbiosName"`
	OperatingSystem  *OperatingSystem `json:"operatingSystem,omitempty" mapstructure:"operatingSystem"`
	CriticalityScore int              `json:"criticalityScore,omitempty" mapstructure:"criticalityScore"`
	RiskScore        int              `json:"riskScore,omitempty" mapstructure:"riskScore"`
	LastModified     time.Time        `json:"lastModifiedDate,omitzero" mapstructure:"lastModifiedDate"`
	Created          time.Time        `json:"createdDate,omitzero" mapstructure:"createdDate"`
}

// OperatingSystem is the normalized OS block of an asset.
type OperatingSystem struct {
	Name      string `json:"osName" mapstructure:"osName"`
	Full      string `json:"fullName,omitempty" mapstructure:"fullName"`
	Category  string `json:"category,omitempty" mapstructure:"category"`
	Publisher string `json:"publisher,omitempty" mapstructure:"publisher"`
	Version   string `json:"version,omitempty" mapstructure:"version"`
}

// Host is a VMDR host, with detections when listed through host detection.
type Host struct {
	recordBase `mapstructure:"-"`

	ID             int64       `json:"id" mapstructure:"ID"`
	AssetID        int64       `json:"assetId,omitempty" mapstructure:"ASSET_ID"`
	IP             string      `json:"ip,omitempty" mapstructure:"IP"`
	IPv6           string      `json:"ipv6,omitempty" mapstructure:"IPV6"`
	TrackingMethod string      `json:"trackingMethod,omitempty" mapstructure:"TRACKING_METHOD"`
	DNS            string      `json:"dns,omitempty" mapstructure:"DNS"`
	NetBIOS        string      `json:"netbios,omitempty" mapstructure:"NETBIOS"`
	OS             string      `json:"os,omitempty" mapstructure:"OS"`
	LastScan       time.Time   `json:"lastScan,omitzero" mapstructure:"LAST_SCAN_DATETIME"`
	LastVMScanned  time.Time   `json:"lastVmScanned,omitzero" mapstructure:"LAST_VM_SCANNED_DATE"`
	Detections     []Detection `json:"detections,omitempty" mapstructure:"-"`
}

// Detection is one vulnerability detection on a host.
type Detection struct {
	QID       int64     `json:"qid" mapstructure:"QID"`
	Type      string    `json:"type" mapstructure:"TYPE"`
	Severity  int       `json:"severity" mapstructure:"SEVERITY"`
	Status    string    `json:"status,omitempty" mapstructure:"STATUS"`
	Port      int       `json:"port,omitempty" mapstructure:"PORT"`
	Protocol  string    `json:"protocol,omitempty" mapstructure:"PROTOCOL"`
	Results   string    `json:"results,omitempty" mapstructure:"RESULTS"`
	FirstSeen time.Time `json:"firstFound,omitzero" mapstructure:"FIRST_FOUND_DATETIME"`
	LastSeen  time.Time `json:"lastFound,omitzero" mapstructure:"LAST_FOUND_DATETIME"`
	TimesSeen int       `json:"timesFound,omitempty" mapstructure:"TIMES_FOUND"`
}

// Finding is a Web Application Scanning finding.
type Finding struct {
	recordBase `mapstructure:"-"`

	ID            int64     `json:"id" mapstructure:"id"`
	UniqueID      string    `json:"uniqueId" mapstructure:"uniqueId"`
	QID           int64     `json:"qid" mapstructure:"qid"`
	Name          string    `json:"name" mapstructure:"name"`
	Type          string    `json:"type" mapstructure:"type"`
	FindingType   string    `json:"findingType,omitempty" mapstructure:"findingType"`
	Severity      int       `json:"severity" mapstructure:"severity"`
	Status        string    `json:"status" mapstructure:"status"`
	URL           string    `json:"url,omitempty" mapstructure:"url"`
	Potential     bool      `json:"potential" mapstructure:"potential"`
	TimesDetected int       `json:"timesDetected,omitempty" mapstructure:"timesDetected"`
	WebApp        WebAppRef `json:"webApp" mapstructure:"webApp"`
	FirstDetected time.Time `json:"firstDetectedDate,omitzero" mapstructure:"firstDetectedDate"`
	LastDetected  time.Time `json:"lastDetectedDate,omitzero" mapstructure:"lastDetectedDate"`
	LastTested    time.Time `json:"lastTestedDate,omitzero" mapstructure:"lastTestedDate"`
}

// WebAppRef identifies the web application a finding belongs to.
type WebAppRef struct {
	ID   int64  `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url,omitempty" mapstructure:"url"`
}

// Connector is a CloudView AWS connector.
type Connector struct {
	recordBase `mapstructure:"-"`

	ID            string    `json:"connectorId" mapstructure:"connectorId"`
	Name          string    `json:"name" mapstructure:"name"`
	Description   string    `json:"description,omitempty" mapstructure:"description"`
	Provider      string    `json:"provider,omitempty" mapstructure:"provider"`
	State         string    `json:"state" mapstructure:"state"`
	AWSAccountID  string    `json:"awsAccountId,omitempty" mapstructure:"awsAccountId"`
	ARN           string    `json:"arn,omitempty" mapstructure:"arn"`
	TotalAssets   int       `json:"totalAssets,omitempty" mapstructure:"totalAssets"`
	GovCloud      bool      `json:"isGovCloud" mapstructure:"isGovCloud"`
	ChinaRegion   bool      `json:"isChinaRegion" mapstructure:"isChinaRegion"`
	LastSyncedOn  time.Time `json:"lastSyncedOn,omitzero" mapstructure:"lastSyncedOn"`
	RemediationOn bool      `json:"remediationEnabled" mapstructure:"remediationEnabled"`
}

// Agent is a Cloud Agent host asset.
type Agent struct {
	recordBase `mapstructure:"-"`

	ID          int64     `json:"id" mapstructure:"id"`
	Name        string    `json:"name" mapstructure:"name"`
	OS          string    `json:"os,omitempty" mapstructure:"os"`
	DNSHostName string    `json:"dnsHostName,omitempty" mapstructure:"dnsHostName"`
	Address     string    `json:"address,omitempty" mapstructure:"address"`
	Created     time.Time `json:"created,omitzero" mapstructure:"created"`
	Modified    time.Time `json:"modified,omitzero" mapstructure:"modified"`
	Info        AgentInfo `json:"agentInfo" mapstructure:"agentInfo"`
}

// AgentInfo is the agent block of a Cloud Agent host asset.
type AgentInfo struct {
	AgentID      string `json:"agentId" mapstructure:"agentId"`
	AgentVersion string `json:"agentVersion" mapstructure:"agentVersion"`
	Status       string `json:"status" mapstructure:"status"`
	Platform     string `json:"platform,omitempty" mapstructure:"platform"`
}

// Job is a Patch Management deployment job.
type Job struct {
	recordBase `mapstructure:"-"`

	ID       string    `json:"id" mapstructure:"id"`
	Name     string    `json:"name" mapstructure:"name"`
	Type     string    `json:"type,omitempty" mapstructure:"type"`
	Status   string    `json:"status" mapstructure:"status"`
	Platform string    `json:"platform,omitempty" mapstructure:"platform"`
	Created  time.Time `json:"createdOn,omitzero" mapstructure:"createdOn"`
	Updated  time.Time `json:"updatedOn,omitzero" mapstructure:"updatedOn"`
}

// Container is a Container Security container.
type Container struct {
	recordBase `mapstructure:"-"`

	ID       string    `json:"containerId" mapstructure:"containerId"`
	UUID     string    `json:"uuid" mapstructure:"uuid"`
	Name     string    `json:"name" mapstructure:"name"`
	ImageID  string    `json:"imageId,omitempty" mapstructure:"imageId"`
	State    string    `json:"state" mapstructure:"state"`
	Hostname string    `json:"hostName,omitempty" mapstructure:"hostName"`
	Created  time.Time `json:"created,omitzero" mapstructure:"created"`
}

// AssetFromRecord converts a gav record.
func AssetFromRecord(r Record) (*Asset, error) { return fromRecord[Asset](r) }

// FindingFromRecord converts a was finding record.
func FindingFromRecord(r Record) (*Finding, error) { return fromRecord[Finding](r) }

// ConnectorFromRecord converts a cloudview connector record.
func ConnectorFromRecord(r Record) (*Connector, error) { return fromRecord[Connector](r) }

// AgentFromRecord converts a cloud_agent host asset record.
func AgentFromRecord(r Record) (*Agent, error) { return fromRecord[Agent](r) }

// JobFromRecord converts a pm deployment job record.
func JobFromRecord(r Record) (*Job, error) { return fromRecord[Job](r) }

// ContainerFromRecord converts a cs container record.
func ContainerFromRecord(r Record) (*Container, error) { return fromRecord[Container](r) }

// HostFromRecord converts a vmdr HOST record. Detections are read from
// DETECTION_LIST/DETECTION when present.
func HostFromRecord(r Record) (*Host, error) {
	h, err := fromRecord[Host](r)
	if err != nil {
		return nil, err
	}
	list, ok := lookup(map[string]any(r), "DETECTION_LIST", "DETECTION")
	if !ok {
		return h, nil
	}
	var wrap struct {
		Detections []Detection `mapstructure:"DETECTION"`
	}
	if err := DecodeRecord(Record{"DETECTION": list}, &wrap); err != nil {
		return nil, fmt.Errorf("host %d detections: %w", h.ID, err)
	}
	h.Detections = wrap.Detections
	return h, nil
}

// CountFromRecord reads the count of a count endpoint record.
func CountFromRecord(r Record) (int, error) {
	v, ok := r["count"]
	if !ok {
		return 0, fmt.Errorf("record has no count field")
	}
	s, ok := scalarString(v)
	if !ok {
		return 0, fmt.Errorf("count is %T", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", s, err)
	}
	return n, nil
}

type rawSetter[T any] interface {
	*T
	setRaw(Record)
}

func fromRecord[T any, PT rawSetter[T]](r Record) (*T, error) {
	out := new(T)
	if err := DecodeRecord(r, out); err != nil {
		return nil, err
	}
	PT(out).setRaw(r)
	return out, nil
}

// DecodeRecord decodes a record into out, a pointer to a struct with mapstructure
// tags. Decoding is weakly typed: XML text becomes numbers, booleans, and times;
// a single XML element fills a slice; an empty element becomes a zero value.
func DecodeRecord(r Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			emptyElementHook,
			textNodeHook,
			timeHook,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(r))
}

var timeType = reflect.TypeFor[time.Time]()

// emptyElementHook turns an empty XML element ("") into an empty container.
func emptyElementHook(from, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok || strings.TrimSpace(s) != "" || to == timeType {
		return data, nil
	}
	for to.Kind() == reflect.Pointer {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Struct, reflect.Map:
		return map[string]any{}, nil
	case reflect.Slice:
		return []any{}, nil
	}
	return data, nil
}

// textNodeHook unwraps an XML element with attributes into its text.
func textNodeHook(from, to reflect.Type, data any) (any, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	text, ok := m["#text"]
	if !ok {
		return data, nil
	}
	if to != timeType && (to.Kind() == reflect.Struct || to.Kind() == reflect.Map) {
		return data, nil
	}
	return text, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// timeHook accepts RFC 3339 and plain date strings, and epoch seconds or
// milliseconds as string or number.
func timeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case json.Number:
		return epochTime(v.String())
	case float64:
		return epochTime(strconv.FormatFloat(v, 'f', 0, 64))
	case int64:
		return epochTime(strconv.FormatInt(v, 10))
	case int:
		return epochTime(strconv.Itoa(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		if isDigits(s) {
			return epochTime(s)
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("unrecognized time %q", s)
	}
	return data, nil
}

// epochTime reads epoch seconds, or milliseconds when the value is too large to
// be seconds.
func epochTime(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return time.Time{}, fmt.Errorf("unrecognized epoch %q", s)
		}
		n = int64(f)
	}
	if n > 1e11 {
		return epochMillis(n), nil
	}
	return time.Unix(n, 0).UTC(), nil
}

func epochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

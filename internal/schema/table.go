package schema

// Envelopes and continuations shared by endpoint families.
var (
	// Gateway asset inventory (CSAM/GAV) JSON responses.
	gavEnvelope = Envelope{
		StatusPath:  []string{"responseCode"},
		Success:     "SUCCESS",
		MessagePath: []string{"responseMessage"},
	}
	gavCursor = Continuation{
		Kind:        ContinueCursor,
		MorePath:    []string{"hasMore"},
		CursorPath:  []string{"lastSeenAssetId"},
		CursorParam: "lastSeenAssetId",
	}

	// QPS REST (WAS, Cloud Agent) XML ServiceResponse.
	qpsCursor = Continuation{
		Kind:           ContinueCursor,
		MorePath:       []string{"hasMoreRecords"},
		CursorPath:     []string{"lastId"},
		CursorParam:    "id",
		CursorOperator: "GREATER",
	}

	// VMDR list output truncated with a WARNING/URL next page.
	vmdrCursor = Continuation{
		Kind:           ContinueURLCursor,
		CursorPath:     []string{"RESPONSE", "WARNING", "URL"},
		CursorURLParam: "id_min",
		CursorParam:    "id_min",
	}
)

func qpsEnvelope(records ...string) Envelope {
	return Envelope{
		Root:        "ServiceResponse",
		StatusPath:  []string{"responseCode"},
		Success:     "SUCCESS",
		MessagePath: []string{"responseErrorDetails", "errorMessage"},
		RecordPath:  records,
	}
}

func vmdrEnvelope(root string, records ...string) Envelope {
	return Envelope{Root: root, RecordPath: records}
}

var (
	gavFilterKeys = &FilterKeyRule{
		Param:     "filter",
		Separator: ":",
		Keys: []string{
			"asset.assetId", "asset.name", "asset.address", "asset.dnsName",
			"asset.netbiosName", "asset.operatingSystem", "asset.lastUpdated",
			"asset.criticality", "asset.riskScore", "asset.tag", "asset.inventory.source",
		},
	}

	awsConnectorFilterKeys = &FilterKeyRule{
		Param:     "filter",
		Separator: ":",
		Keys:      []string{"name", "description", "state", "connector.uuid", "lastSyncedOn"},
		UpperKeys: []string{"state"},
	}
)

var wasFindingFilters = map[string]FieldType{
	"id":                FieldInteger,
	"uniqueId":          FieldText,
	"qid":               FieldInteger,
	"name":              FieldText,
	"type":              FieldKeyword,
	"url":               FieldText,
	"webApp_tags_id":    FieldInteger,
	"webApp_tags_name":  FieldText,
	"status":            FieldKeyword,
	"patch":             FieldInteger,
	"webApp_id":         FieldInteger,
	"webApp_name":       FieldText,
	"severity":          FieldInteger,
	"externalRef":       FieldText,
	"ignoredDate":       FieldDate,
	"ignoredReason":     FieldKeyword,
	"group":             FieldKeyword,
	"owasp_name":        FieldText,
	"owasp_code":        FieldInteger,
	"wasc_name":         FieldText,
	"wasc_code":         FieldInteger,
	"cwe_id":            FieldInteger,
	"firstDetectedDate": FieldDate,
	"lastDetectedDate":  FieldDate,
	"lastTestedDate":    FieldDate,
	"timesDetected":     FieldInteger,
	"fixedDate":         FieldDate,
}

var wasWebAppFilters = map[string]FieldType{
	"id":              FieldInteger,
	"name":            FieldText,
	"url":             FieldText,
	"tags_name":       FieldText,
	"tags_id":         FieldInteger,
	"createdDate":     FieldDate,
	"updatedDate":     FieldDate,
	"isScheduled":     FieldBoolean,
	"isScanned":       FieldBoolean,
	"lastScan_status": FieldKeyword,
	"lastScan_date":   FieldDate,
}

var agentFilters = map[string]FieldType{
	"id":                        FieldInteger,
	"name":                      FieldText,
	"created":                   FieldDate,
	"updated":                   FieldDate,
	"os":                        FieldText,
	"dnsHostName":               FieldText,
	"address":                   FieldText,
	"tagName":                   FieldText,
	"tagId":                     FieldInteger,
	"agentVersion":              FieldText,
	"agentInfo_lastCheckedIn":   FieldDate,
	"agentInfo_activatedModule": FieldKeyword,
}

var wasUpper = []string{"status", "type", "ignoredReason", "group"}

// Parameter sets shared by VMDR host listings.
var (
	hostListParams = []string{
		"action", "echo_request", "show_asset_id", "details", "os_pattern", "truncation_limit",
		"ips", "ipv6", "ag_ids", "ag_titles", "ids", "id_min", "id_max", "network_ids",
		"compliance_enabled", "no_vm_scan_since", "no_compliance_scan_since",
		"vm_scan_since", "compliance_scan_since", "vm_processed_before", "vm_processed_after",
		"vm_scan_date_before", "vm_scan_date_after", "vm_auth_scan_date_before",
		"vm_auth_scan_date_after", "scap_scan_since", "no_scap_scan_since", "use_tags",
		"tag_set_by", "tag_include_selector", "tag_exclude_selector", "tag_set_include",
		"tag_set_exclude", "show_tags", "host_metadata", "host_metadata_fields",
		"show_cloud_tags", "cloud_tag_fields", "show_ars", "ars_min", "ars_max",
		"show_ars_factors", "show_trurisk", "trurisk_min", "trurisk_max",
		"show_trurisk_factors",
	}
	hostDetectionParams = append([]string{
		"show_results", "show_igs", "show_reopened_info", "arf_kernel_filter",
		"arf_service_filter", "arf_config_filter", "include_ignored", "include_disabled",
		"include_search_list_titles", "exclude_search_list_titles", "include_search_list_ids",
		"exclude_search_list_ids", "qids", "severities", "filter_superseded_qids",
		"show_qds", "qds_min", "qds_max", "show_qds_factors", "status", "detection_updated_since",
		"detection_updated_before", "detection_processed_before", "detection_processed_after",
		"detection_last_tested_since", "detection_last_tested_since_days",
		"detection_last_tested_before", "detection_last_tested_before_days",
		"max_days_since_last_vm_scan", "max_days_since_detection_updated", "suppress_duplicated_data_from_csv",
		"output_format",
	}, hostListParams...)
)

func builtin() []Contract {
	var all []Contract
	all = append(all, gavContracts()...)
	all = append(all, vmdrContracts()...)
	all = append(all, cloudAgentContracts()...)
	all = append(all, wasContracts()...)
	all = append(all, cloudViewContracts()...)
	all = append(all, pmContracts()...)
	all = append(all, csContracts()...)
	return all
}

func gavContracts() []Contract {
	base := Contract{
		Module:         "gav",
		Host:           HostGateway,
		Methods:        []string{"POST"},
		BodyEncoding:   BodyNone,
		ResponseFormat: FormatJSON,
		AuthMode:       AuthToken,
		BoolStyle:      BoolWord,
		Envelope:       gavEnvelope,
	}
	listEnvelope := gavEnvelope
	listEnvelope.RecordPath = []string{"assetListData", "asset"}

	count := base
	count.Name = "count_assets"
	count.URLTemplate = "/am/v1/assets/host/count"
	count.QueryParams = []string{"filter", "lastSeenAssetId", "lastModifiedDate"}
	count.FilterKeys = gavFilterKeys

	all := base
	all.Name = "get_all_assets"
	all.URLTemplate = "/am/v1/assets/host/list"
	all.QueryParams = []string{"excludeFields", "includeFields", "lastModifiedDate", "lastSeenAssetId", "pageSize"}
	all.Paginated = true
	all.Envelope = listEnvelope
	all.Continuation = gavCursor

	one := base
	one.Name = "get_asset"
	one.URLTemplate = "/am/v1/asset/host/id"
	one.QueryParams = []string{"assetId", "excludeFields", "includeFields"}
	one.Envelope = listEnvelope

	query := all
	query.Name = "query_assets"
	query.URLTemplate = "/am/v1/assets/host/filter/list"
	query.QueryParams = []string{"filter", "excludeFields", "includeFields", "lastModifiedDate", "lastSeenAssetId", "pageSize"}
	query.FilterKeys = gavFilterKeys

	return []Contract{count, all, one, query}
}

func vmdrContracts() []Contract {
	base := Contract{
		Module:         "vmdr",
		Host:           HostAPI,
		Methods:        []string{"GET", "POST"},
		BodyEncoding:   BodyNone,
		ResponseFormat: FormatXML,
		AuthMode:       AuthBasic,
		BoolStyle:      BoolNumeric,
		Defaults:       map[string]string{"action": "list"},
	}

	hosts := base
	hosts.Name = "get_host_list"
	hosts.URLTemplate = "/api/2.0/fo/asset/host/"
	hosts.QueryParams = hostListParams
	hosts.Paginated = true
	hosts.Envelope = vmdrEnvelope("HOST_LIST_OUTPUT", "RESPONSE", "HOST_LIST", "HOST")
	hosts.Continuation = vmdrCursor

	hld := base
	hld.Name = "get_hld"
	hld.URLTemplate = "/api/2.0/fo/asset/host/vm/detection/"
	hld.QueryParams = hostDetectionParams
	hld.Paginated = true
	hld.UpperFields = []string{"status"}
	hld.Envelope = vmdrEnvelope("HOST_LIST_VM_DETECTION_OUTPUT", "RESPONSE", "HOST_LIST", "HOST")
	hld.Continuation = vmdrCursor

	kb := base
	kb.Name = "query_kb"
	kb.URLTemplate = "/api/2.0/fo/knowledge_base/vuln/"
	kb.QueryParams = []string{
		"action", "echo_request", "details", "ids", "id_min", "id_max", "is_patchable",
		"last_modified_after", "last_modified_before", "last_modified_by_user_after",
		"last_modified_by_user_before", "last_modified_by_service_after",
		"last_modified_by_service_before", "published_after", "published_before",
		"discovery_method", "discovery_auth_types", "show_pci_reasons",
		"show_supported_modules_info", "show_disabled_flag", "show_qid_change_log",
	}
	kb.Envelope = vmdrEnvelope("KNOWLEDGE_BASE_VULN_LIST_OUTPUT", "RESPONSE", "VULN_LIST", "VULN")

	groups := base
	groups.Name = "get_ag_list"
	groups.URLTemplate = "/api/2.0/fo/asset/group/"
	groups.QueryParams = []string{
		"action", "echo_request", "ids", "id_min", "id_max", "truncation_limit",
		"network_ids", "unit_id", "user_id", "title", "show_attributes",
	}
	groups.Paginated = true
	groups.Envelope = vmdrEnvelope("ASSET_GROUP_LIST_OUTPUT", "RESPONSE", "ASSET_GROUP_LIST", "ASSET_GROUP")
	groups.Continuation = vmdrCursor

	scans := base
	scans.Name = "list_scans"
	scans.URLTemplate = "/api/2.0/fo/scan/"
	scans.QueryParams = []string{
		"action", "echo_request", "scan_ref", "state", "processed", "type", "target",
		"user_login", "launched_after_datetime", "launched_before_datetime", "scan_type",
		"client_id", "client_name", "show_ags", "show_op", "show_status", "show_last",
		"scan_id", "ignore_target",
	}
	scans.Envelope = vmdrEnvelope("SCAN_LIST_OUTPUT", "RESPONSE", "SCAN_LIST", "SCAN")

	launch := base
	launch.Name = "launch_scan"
	launch.URLTemplate = "/api/2.0/fo/scan/"
	launch.Methods = []string{"POST"}
	launch.BodyEncoding = BodyForm
	launch.BodyParams = []string{
		"action", "echo_request", "scan_title", "target_from", "ip", "asset_groups",
		"asset_group_ids", "exclude_ip_per_scan", "tag_include_selector", "tag_exclude_selector",
		"tag_set_by", "tag_set_include", "tag_set_exclude", "use_ip_nt_range_tags_include",
		"use_ip_nt_range_tags_exclude", "use_ip_nt_range_tags", "iscanner_id", "iscanner_name",
		"ec2_instance_ids", "option_id", "option_title", "priority", "connector_name",
		"ec2_endpoint", "ip_network_id", "runtime_http_header", "scanners_in_ag",
		"default_scanner", "fqdn", "client_id", "client_name", "include_agent_targets",
	}
	launch.Defaults = map[string]string{"action": "launch"}
	launch.Envelope = vmdrEnvelope("SIMPLE_RETURN", "RESPONSE", "ITEM_LIST", "ITEM")

	scanners := base
	scanners.Name = "get_scanner_list"
	scanners.URLTemplate = "/api/2.0/fo/appliance/"
	scanners.QueryParams = []string{
		"action", "echo_request", "output_mode", "scan_detail", "show_tags", "include_cloud_info",
		"busy", "scan_ref", "name", "ids", "include_license_info", "type", "platform_provider",
	}
	scanners.Envelope = vmdrEnvelope("APPLIANCE_LIST_OUTPUT", "RESPONSE", "APPLIANCE_LIST", "APPLIANCE")

	reports := base
	reports.Name = "get_report_list"
	reports.URLTemplate = "/api/2.0/fo/report/"
	reports.QueryParams = []string{"action", "echo_request", "id", "state", "user_login", "expires_before_datetime", "client_id", "client_name"}
	reports.Envelope = vmdrEnvelope("REPORT_LIST_OUTPUT", "RESPONSE", "REPORT_LIST", "REPORT")

	ips := base
	ips.Name = "get_ip_list"
	ips.URLTemplate = "/api/2.0/fo/asset/ip/"
	ips.QueryParams = []string{"action", "echo_request", "ips", "network_id", "tracking_method", "compliance_enabled", "certview_enabled"}
	ips.Envelope = vmdrEnvelope("IP_LIST_OUTPUT", "RESPONSE", "IP_SET")

	qvs := base
	qvs.Name = "get_kb_qvs"
	qvs.URLTemplate = "/api/2.0/fo/knowledge_base/qvs/"
	qvs.Methods = []string{"GET"}
	qvs.QueryParams = []string{"action", "details", "cve", "qvs_min", "qvs_max", "qvs_last_changed_date", "nvd_published_date"}
	qvs.ResponseFormat = FormatJSON
	qvs.Envelope = Envelope{KeyField: "cve"}

	addIPs := base
	addIPs.Name = "add_ips"
	addIPs.URLTemplate = "/api/2.0/fo/asset/ip/"
	addIPs.Methods = []string{"POST"}
	addIPs.BodyEncoding = BodyForm
	addIPs.BodyParams = []string{"action", "echo_request", "ips", "tracking_method", "enable_vm", "enable_pc", "owner", "ud1", "ud2", "ud3", "comment", "ag_title", "enable_certview", "enable_sca"}
	addIPs.Defaults = map[string]string{"action": "add"}
	addIPs.Envelope = vmdrEnvelope("SIMPLE_RETURN", "RESPONSE")

	updateIPs := addIPs
	updateIPs.Name = "update_ips"
	updateIPs.BodyParams = []string{"action", "echo_request", "ips", "network_id", "host_dns", "host_netbios", "tracking_method", "owner", "ud1", "ud2", "ud3", "comment"}
	updateIPs.Defaults = map[string]string{"action": "update"}

	purge := base
	purge.Name = "purge_hosts"
	purge.URLTemplate = "/api/2.0/fo/asset/host/"
	purge.Methods = []string{"POST"}
	purge.QueryParams = []string{
		"action", "echo_request", "ids", "ips", "ag_ids", "ag_titles", "network_ids",
		"no_vm_scan_since", "no_compliance_scan_since", "data_scope", "compliance_enabled",
		"os_pattern",
	}
	purge.Defaults = map[string]string{"action": "purge"}
	purge.Envelope = vmdrEnvelope("BATCH_RETURN", "RESPONSE", "BATCH_LIST", "BATCH")

	return []Contract{hosts, hld, kb, groups, scans, launch, scanners, reports, ips, qvs, addIPs, updateIPs, purge}
}

func cloudAgentContracts() []Contract {
	base := Contract{
		Module:         "cloud_agent",
		Host:           HostAPI,
		Methods:        []string{"POST"},
		BodyEncoding:   BodyXML,
		ResponseFormat: FormatXML,
		AuthMode:       AuthBasic,
		BoolStyle:      BoolWord,
	}

	list := base
	list.Name = "list_agents"
	list.URLTemplate = "/qps/rest/2.0/search/am/hostasset"
	list.BodyParams = []string{"limitResults"}
	list.Filters = agentFilters
	list.UpperFields = []string{"agentInfo_activatedModule"}
	list.Paginated = true
	list.Envelope = qpsEnvelope("data", "HostAsset")
	list.Continuation = qpsCursor

	purge := base
	purge.Name = "purge_agent"
	purge.URLTemplate = "/qps/rest/2.0/uninstall/am/asset/{placeholder}"
	purge.Envelope = qpsEnvelope("data", "Asset")

	ods := base
	ods.Name = "launch_ods"
	ods.URLTemplate = "/qps/rest/1.0/ods/ca/agentasset/{placeholder}"
	ods.QueryParams = []string{"scan", "overrideConfigCpu"}
	ods.Envelope = qpsEnvelope()

	return []Contract{list, purge, ods}
}

func wasContracts() []Contract {
	base := Contract{
		Module:         "was",
		Host:           HostAPI,
		Methods:        []string{"POST"},
		BodyEncoding:   BodyXML,
		ResponseFormat: FormatXML,
		AuthMode:       AuthBasic,
		BoolStyle:      BoolWord,
	}

	countFindings := base
	countFindings.Name = "count_findings"
	countFindings.URLTemplate = "/qps/rest/3.0/count/was/finding"
	countFindings.Filters = wasFindingFilters
	countFindings.UpperFields = wasUpper
	countFindings.Envelope = qpsEnvelope()

	findings := countFindings
	findings.Name = "get_findings"
	findings.URLTemplate = "/qps/rest/3.0/search/was/finding"
	findings.BodyParams = []string{"verbose", "limitResults"}
	findings.Paginated = true
	findings.Envelope = qpsEnvelope("data", "Finding")
	findings.Continuation = qpsCursor

	countApps := base
	countApps.Name = "count_webapps"
	countApps.URLTemplate = "/qps/rest/3.0/count/was/webapp"
	countApps.Filters = wasWebAppFilters
	countApps.UpperFields = []string{"lastScan_status"}
	countApps.Envelope = qpsEnvelope()

	apps := countApps
	apps.Name = "get_webapps"
	apps.URLTemplate = "/qps/rest/3.0/search/was/webapp"
	apps.BodyParams = []string{"verbose", "limitResults"}
	apps.Paginated = true
	apps.Envelope = qpsEnvelope("data", "WebApp")
	apps.Continuation = qpsCursor

	return []Contract{countFindings, findings, countApps, apps}
}

func cloudViewContracts() []Contract {
	base := Contract{
		Module:         "cloudview",
		Host:           HostAPI,
		Methods:        []string{"GET"},
		BodyEncoding:   BodyNone,
		ResponseFormat: FormatJSON,
		AuthMode:       AuthBasic,
		BoolStyle:      BoolWord,
	}

	connectors := base
	connectors.Name = "get_aws_connectors"
	connectors.URLTemplate = "/cloudview-api/rest/v1/aws/connectors"
	connectors.QueryParams = []string{"pageNo", "pageSize", "filter", "sort"}
	connectors.FilterKeys = awsConnectorFilterKeys
	connectors.Paginated = true
	connectors.Envelope = Envelope{RecordPath: []string{"content"}}
	connectors.Continuation = Continuation{
		Kind:      ContinueLastFlag,
		LastPath:  []string{"last"},
		PageParam: "pageNo",
	}

	details := base
	details.Name = "get_aws_connector_details"
	details.URLTemplate = "/cloudview-api/rest/v1/aws/connectors/{placeholder}"

	account := base
	account.Name = "get_aws_base_account"
	account.URLTemplate = "/cloudview-api/rest/v1/aws/baseAccount"

	return []Contract{connectors, details, account}
}

func pmContracts() []Contract {
	base := Contract{
		Module:         "pm",
		Host:           HostGateway,
		Methods:        []string{"GET"},
		BodyEncoding:   BodyNone,
		ResponseFormat: FormatJSON,
		AuthMode:       AuthToken,
		BoolStyle:      BoolWord,
	}

	jobs := base
	jobs.Name = "list_jobs"
	jobs.URLTemplate = "/pm/v1/deploymentjobs"
	jobs.QueryParams = []string{"platform", "filter", "attributes", "coauthorJob", "ownedJob", "pageSize", "pageNumber", "sort"}
	jobs.Paginated = true
	jobs.Continuation = Continuation{Kind: ContinuePageNumber, PageParam: "pageNumber"}

	version := base
	version.Name = "get_version"
	version.URLTemplate = "/pm/v1/version"

	return []Contract{jobs, version}
}

func csContracts() []Contract {
	base := Contract{
		Module:         "cs",
		Host:           HostGateway,
		Methods:        []string{"GET"},
		BodyEncoding:   BodyNone,
		ResponseFormat: FormatJSON,
		AuthMode:       AuthToken,
		BoolStyle:      BoolWord,
	}

	containers := base
	containers.Name = "list_containers"
	containers.URLTemplate = "/csapi/v1.3/containers/list"
	containers.QueryParams = []string{"filter", "pageNumber", "pageSize", "sort"}
	containers.Paginated = true
	containers.Envelope = Envelope{RecordPath: []string{"data"}}
	containers.Continuation = Continuation{Kind: ContinuePageNumber, PageParam: "pageNumber", PageStart: 1}

	details := base
	details.Name = "get_container_details"
	details.URLTemplate = "/csapi/v1.3/containers/{placeholder}"

	return []Contract{containers, details}
}

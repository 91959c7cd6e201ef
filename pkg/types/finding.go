package types

// Finding is a drift finding in AWS Security Finding Format field layout.
// Findings are immutable once built.
type Finding struct {
	SchemaVersion string            `json:"SchemaVersion"`
	ID            string            `json:"Id"`
	ProductArn    string            `json:"ProductArn"`
	GeneratorID   string            `json:"GeneratorId"`
	AwsAccountID  string            `json:"AwsAccountId"`
	Region        string            `json:"Region,omitempty"`
	Types         []string          `json:"Types"`
	CreatedAt     string            `json:"CreatedAt"`
	UpdatedAt     string            `json:"UpdatedAt"`
	Severity      FindingSeverity   `json:"Severity"`
	Title         string            `json:"Title"`
	Description   string            `json:"Description"`
	Resources     []FindingResource `json:"Resources"`
	ProductFields map[string]string `json:"ProductFields,omitempty"`
	RecordState   string            `json:"RecordState"`
}

// FindingSeverity holds the severity label of a finding
type FindingSeverity struct {
	Label string `json:"Label"`
}

// FindingResource references the affected host
type FindingResource struct {
	Type string `json:"Type"`
	ID   string `json:"Id"`
}

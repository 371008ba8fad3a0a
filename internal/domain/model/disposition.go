package model

// Disposition is the routing outcome for a candidate item.
type Disposition string

// Dispositions.
const (
	AutoApproved Disposition = "auto-approved"
	ReviewQuick  Disposition = "review-quick"
	ReviewDeep   Disposition = "review-deep"
	Rejected     Disposition = "rejected"
)

package model

// ItemType classifies a cost-estimate line item.
type ItemType string

const (
	ItemParts ItemType = "parts"
	ItemLabor ItemType = "labor"
	ItemFee   ItemType = "fee"
)

// LineItem is one position on a repair cost estimate. RepairContext is the
// human-entered section header the item appeared under; it may be absent on
// a given item and is carried forward from the nearest preceding item that
// has one, within the same document only.
type LineItem struct {
	ItemCode      string   `json:"item_code,omitempty"`
	Description   string   `json:"description"`
	RepairContext string   `json:"repair_context,omitempty"`
	Type          ItemType `json:"item_type"`
	TotalPrice    float64  `json:"total_price"`
	Page          int      `json:"page"`
	DocID         string   `json:"doc_id,omitempty"`
}

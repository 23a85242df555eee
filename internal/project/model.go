package project

import "time"

// Project is a named unit of bid preparation work.
type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CreatedAt   time.Time    `json:"createdAt"`
	CdcAnalysis *CdcAnalysis `json:"cdcAnalysis"`
	BpuDqeItems []LineItem   `json:"bpuDqeItems"`
	PricedItems []LineItem   `json:"pricedItems"`
}

// CdcAnalysis holds the three report sections produced from a requirements document.
type CdcAnalysis struct {
	Synthesis      string `json:"synthesis"`
	LegalAudit     string `json:"legalAudit"`
	TechnicalBrief string `json:"technicalBrief"`
}

// LineItem is one row of a BPU/DQE price schedule.
type LineItem struct {
	ID          string   `json:"id"`
	Number      string   `json:"number"`
	Designation string   `json:"designation"`
	Unit        string   `json:"unit"`
	Quantity    Quantity `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
	TotalPrice  *float64 `json:"totalPrice,omitempty"`
}

// Priced reports whether both pricing fields are set.
func (li LineItem) Priced() bool {
	return li.UnitPrice != nil && li.TotalPrice != nil
}

// Clone returns a deep copy so callers can mutate slices without touching stored state.
func (p Project) Clone() Project {
	out := p
	if p.CdcAnalysis != nil {
		analysis := *p.CdcAnalysis
		out.CdcAnalysis = &analysis
	}
	out.BpuDqeItems = CloneItems(p.BpuDqeItems)
	out.PricedItems = CloneItems(p.PricedItems)
	return out
}

// CloneItems copies items including their optional price pointers. A nil input stays nil.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.UnitPrice != nil {
			v := *item.UnitPrice
			out[i].UnitPrice = &v
		}
		if item.TotalPrice != nil {
			v := *item.TotalPrice
			out[i].TotalPrice = &v
		}
	}
	return out
}

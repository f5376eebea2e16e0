package viewmodels

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/services"
)

// Attribution is the flattened wire shape of the outcome union: three
// nullable pairs of which at most one is set, matching what admin clients
// already consume.
type Attribution struct {
	ApprovedBy *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedBy *uuid.UUID `json:"rejected_by,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	OnHoldBy   *uuid.UUID `json:"on_hold_by,omitempty"`
	OnHoldAt   *time.Time `json:"on_hold_at,omitempty"`
}

type Person struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	BuyerType string    `json:"buyer_type,omitempty"`
}

type ListingSummary struct {
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"company_name"`
	Industry    string    `json:"industry,omitempty"`
	Revenue     string    `json:"revenue"`
	AskingPrice string    `json:"asking_price"`
}

type StageSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
}

// DealView is the assembled row the admin pipeline screens render.
type DealView struct {
	ID                 uuid.UUID       `json:"id"`
	Status             string          `json:"status"`
	PriorityScore      float64         `json:"priority_score"`
	AdminComment       string          `json:"admin_comment,omitempty"`
	SourceChannel      string          `json:"source_channel,omitempty"`
	DecisionAt         *time.Time      `json:"decision_at,omitempty"`
	StageEnteredAt     *time.Time      `json:"stage_entered_at,omitempty"`
	NDASigned          bool            `json:"nda_signed"`
	FeeAgreementSigned bool            `json:"fee_agreement_signed"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Attribution        Attribution     `json:"attribution"`
	FollowUpBy         *uuid.UUID      `json:"follow_up_by,omitempty"`
	FlaggedBy          *uuid.UUID      `json:"flagged_by,omitempty"`
	Buyer              *Person         `json:"buyer,omitempty"`
	Listing            *ListingSummary `json:"listing,omitempty"`
	Stage              *StageSummary   `json:"stage,omitempty"`
	Admins             []*Person       `json:"admins,omitempty"`
}

func NewDealView(d *services.Deal) *DealView {
	r := d.Request
	cols := r.Outcome.Flatten()
	v := &DealView{
		ID:                 r.ID,
		Status:             string(r.Status),
		PriorityScore:      r.PriorityScore,
		AdminComment:       r.AdminComment,
		SourceChannel:      r.SourceChannel,
		DecisionAt:         r.DecisionAt,
		StageEnteredAt:     r.StageEnteredAt,
		NDASigned:          r.NDASigned,
		FeeAgreementSigned: r.FeeAgreementSigned,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		Attribution: Attribution{
			ApprovedBy: cols.ApprovedBy,
			ApprovedAt: cols.ApprovedAt,
			RejectedBy: cols.RejectedBy,
			RejectedAt: cols.RejectedAt,
			OnHoldBy:   cols.OnHoldBy,
			OnHoldAt:   cols.OnHoldAt,
		},
		FollowUpBy: r.FollowUpBy,
		FlaggedBy:  r.FlaggedBy,
	}
	if d.Buyer != nil {
		v.Buyer = &Person{
			ID:        d.Buyer.ID,
			Name:      d.Buyer.FullName(),
			Email:     d.Buyer.Email,
			BuyerType: d.Buyer.BuyerType,
		}
	}
	if d.Listing != nil {
		v.Listing = &ListingSummary{
			ID:          d.Listing.ID,
			CompanyName: d.Listing.CompanyName,
			Industry:    d.Listing.Industry,
			Revenue:     d.Listing.Revenue.String(),
			AskingPrice: d.Listing.AskingPrice.String(),
		}
	}
	if d.Stage != nil {
		v.Stage = &StageSummary{ID: d.Stage.ID, Name: d.Stage.Name, Color: d.Stage.Color}
	}
	for id, admin := range d.Admins {
		if admin == nil {
			continue
		}
		v.Admins = append(v.Admins, &Person{ID: id, Name: admin.FullName(), Email: admin.Email})
	}
	return v
}

func NewDealViews(deals []*services.Deal) []*DealView {
	out := make([]*DealView, len(deals))
	for i, d := range deals {
		out[i] = NewDealView(d)
	}
	return out
}

// BoardView is the aggregated pipeline payload.
type BoardView struct {
	Groups               []*BoardGroupView `json:"groups"`
	TotalCount           int               `json:"total_count"`
	TotalValue           string            `json:"total_value"`
	ConversionRate       float64           `json:"conversion_rate"`
	DocumentsComplete    int               `json:"documents_complete"`
	DocumentsCompletePct float64           `json:"documents_complete_pct"`
}

type BoardGroupView struct {
	Stage             StageSummary `json:"stage"`
	Count             int          `json:"count"`
	ValueSum          string       `json:"value_sum"`
	MeanPriority      float64      `json:"mean_priority"`
	DocumentsComplete int          `json:"documents_complete"`
	Deals             []*DealView  `json:"deals"`
}

func NewBoardView(b *services.Board) *BoardView {
	view := &BoardView{
		TotalCount:           b.TotalCount,
		TotalValue:           b.TotalValue.String(),
		ConversionRate:       b.ConversionRate,
		DocumentsComplete:    b.DocumentsComplete,
		DocumentsCompletePct: b.DocumentsCompletePct,
	}
	for _, g := range b.Groups {
		view.Groups = append(view.Groups, &BoardGroupView{
			Stage:             StageSummary{ID: g.Stage.ID, Name: g.Stage.Name, Color: g.Stage.Color},
			Count:             g.Count,
			ValueSum:          g.ValueSum.String(),
			MeanPriority:      g.MeanPriority,
			DocumentsComplete: g.DocumentsComplete,
			Deals:             NewDealViews(g.Deals),
		})
	}
	return view
}

// RequestView is the bare record shape for endpoints that return the row
// without its joins.
func NewRequestView(r *request.ConnectionRequest) *DealView {
	return NewDealView(&services.Deal{Request: r})
}

package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/sevasangh/portal-api/internal/models"
)

// ExportHandler renders staff reporting listings as CSV: one row per
// record, fields in declared order, fixed header row.
type ExportHandler struct {
	db *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{db: db}
}

func (h *ExportHandler) HandleRegistrationsCSV(w http.ResponseWriter, r *http.Request) {
	activityID, err := strconv.Atoi(r.URL.Query().Get("activity_id"))
	if err != nil {
		http.Error(w, "activity_id query parameter required", http.StatusBadRequest)
		return
	}

	var regs []models.Registration
	if err := h.db.WithContext(r.Context()).Preload("Member").
		Where("activity_id = ?", activityID).Order("created_at asc").Find(&regs).Error; err != nil {
		http.Error(w, "Failed to list registrations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=registrations-%d.csv", activityID))

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "member", "email", "tier", "status", "fee", "payment_ref", "comments", "created_at"})
	for _, reg := range regs {
		cw.Write([]string{
			fmt.Sprint(reg.ID),
			reg.Member.Name,
			reg.Member.Email,
			reg.Member.Tier,
			string(reg.Status),
			fmt.Sprint(reg.Fee),
			reg.PaymentRef,
			reg.Comments,
			reg.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	cw.Flush()
}

func (h *ExportHandler) HandleDonationsCSV(w http.ResponseWriter, r *http.Request) {
	var dons []models.Donation
	if err := h.db.WithContext(r.Context()).Preload("Member").
		Order("created_at asc").Find(&dons).Error; err != nil {
		http.Error(w, "Failed to list donations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=donations.csv")

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "member", "purpose", "amount", "status", "source", "txn_ref", "receipt_no", "reject_reason", "created_at"})
	for _, don := range dons {
		cw.Write([]string{
			fmt.Sprint(don.ID),
			don.Member.Name,
			don.Purpose,
			fmt.Sprint(don.Amount),
			string(don.Status),
			string(don.Source),
			don.TxnRef,
			don.ReceiptNo,
			don.RejectReason,
			don.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	cw.Flush()
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/export"
	"github.com/kinternationals/estimator/internal/service"
	"github.com/kinternationals/estimator/internal/store"
)

const (
	maxJSONBody = 1 << 20
	spareRows   = 3
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	shutterSlug = "shutters"
)

type estimatesViewData struct {
	baseViewData
	Query     string
	Status    string
	Estimates []store.EstimateSummary
	Total     decimal.Decimal
}

type estimateFormViewData struct {
	baseViewData
	ID               string
	Number           string
	Input            service.EstimateInput
	Rows             []service.ItemInput
	Customers        []store.Customer
	Products         []store.Product
	ShutterMaterials []store.Product
}

type estimateDetailViewData struct {
	baseViewData
	Estimate store.Estimate
}

type statusInput struct {
	Status string `json:"status"`
}

func estimateFilter(r *http.Request) (store.EstimateFilter, string) {
	q := r.URL.Query()
	f := store.EstimateFilter{Search: q.Get("q"), CustomerID: q.Get("customer")}
	raw := q.Get("status")
	if st, err := store.ParseStatus(raw); err == nil {
		f.Status = st
		raw = string(st)
	} else {
		raw = ""
	}
	return f, raw
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return &service.ValidationError{Fields: map[string]string{"body": fmt.Sprintf("invalid JSON: %v", err)}}
	}
	return nil
}

// readEstimateInput accepts the form either as JSON or as an HTML form post.
func readEstimateInput(w http.ResponseWriter, r *http.Request) (service.EstimateInput, error) {
	var in service.EstimateInput
	if wantsJSON(r) {
		err := decodeJSON(w, r, &in)
		return in, err
	}
	if err := r.ParseForm(); err != nil {
		return in, &service.ValidationError{Fields: map[string]string{"form": "invalid form"}}
	}
	return parseEstimateForm(r)
}

func (s *server) handleEstimatesList(w http.ResponseWriter, r *http.Request) {
	f, status := estimateFilter(r)
	rows, err := s.estimates.List(r.Context(), f)
	if err != nil {
		if wantsJSON(r) {
			writeError(w, "list estimates", err)
			return
		}
		httpError(w, "list estimates", err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, rows)
		return
	}

	total := decimal.Zero
	for _, e := range rows {
		total = total.Add(e.Total)
	}
	s.renderTemplate(w, http.StatusOK, "estimates.html", estimatesViewData{
		baseViewData: s.base(r),
		Query:        f.Search,
		Status:       status,
		Estimates:    rows,
		Total:        total,
	})
}

func (s *server) handleEstimatesExport(w http.ResponseWriter, r *http.Request) {
	f, _ := estimateFilter(r)
	rows, err := s.estimates.List(r.Context(), f)
	if err != nil {
		httpError(w, "list estimates", err)
		return
	}

	now := time.Now()
	out, err := export.EstimatesExcel(rows, now)
	if err != nil {
		httpError(w, "export estimates", err)
		return
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="estimates-%s.xlsx"`, now.Format("20060102")))
	_, _ = w.Write(out)
}

func (s *server) renderEstimateForm(w http.ResponseWriter, r *http.Request, status int, data estimateFormViewData) {
	ctx := r.Context()
	customers, err := s.customers.List(ctx)
	if err != nil {
		httpError(w, "list customers", err)
		return
	}
	products, err := s.catalog.ListProducts(ctx, "")
	if err != nil {
		httpError(w, "list products", err)
		return
	}

	data.Customers = customers
	data.Products = products
	for _, p := range products {
		if p.CategorySlug == shutterSlug {
			data.ShutterMaterials = append(data.ShutterMaterials, p)
		}
	}

	data.Rows = append([]service.ItemInput(nil), data.Input.Items...)
	for i := 0; i < spareRows; i++ {
		data.Rows = append(data.Rows, service.ItemInput{Quantity: decimal.NewFromInt(1)})
	}
	s.renderTemplate(w, status, "estimate_form.html", data)
}

func (s *server) handleEstimateNew(w http.ResponseWriter, r *http.Request) {
	s.renderEstimateForm(w, r, http.StatusOK, estimateFormViewData{
		baseViewData: s.base(r),
		Input:        service.EstimateInput{CustomerID: r.URL.Query().Get("customer")},
	})
}

func (s *server) handleEstimateCreate(w http.ResponseWriter, r *http.Request) {
	in, err := readEstimateInput(w, r)
	var e store.Estimate
	if err == nil {
		e, err = s.estimates.Create(r.Context(), in, currentUserID(r.Context()))
	}

	if wantsJSON(r) {
		if err != nil {
			writeError(w, "create estimate", err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
		return
	}

	if err != nil {
		data := estimateFormViewData{baseViewData: s.base(r), Input: in}
		status := formFailure(&data.baseViewData, "create estimate", err)
		s.renderEstimateForm(w, r, status, data)
		return
	}
	redirectWithSuccess(w, r, "/estimates/"+e.ID, "Estimate "+e.Number+" created")
}

// handleEstimatePreview prices a form without saving it and always answers JSON.
func (s *server) handleEstimatePreview(w http.ResponseWriter, r *http.Request) {
	in, err := readEstimateInput(w, r)
	if err != nil {
		writeError(w, "preview estimate", err)
		return
	}
	priced, err := s.estimates.Preview(r.Context(), in)
	if err != nil {
		writeError(w, "preview estimate", err)
		return
	}
	writeJSON(w, http.StatusOK, priced)
}

func (s *server) handleEstimateDetail(w http.ResponseWriter, r *http.Request) {
	e, err := s.estimates.Get(r.Context(), chi.URLParam(r, "id"))
	if wantsJSON(r) {
		if err != nil {
			writeError(w, "get estimate", err)
			return
		}
		writeJSON(w, http.StatusOK, e)
		return
	}
	if err != nil {
		httpError(w, "get estimate", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "estimate_detail.html", estimateDetailViewData{baseViewData: s.base(r), Estimate: e})
}

func (s *server) handleEstimateEdit(w http.ResponseWriter, r *http.Request) {
	e, err := s.estimates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, "get estimate", err)
		return
	}
	s.renderEstimateForm(w, r, http.StatusOK, estimateFormViewData{
		baseViewData: s.base(r),
		ID:           e.ID,
		Number:       e.Number,
		Input:        service.InputFromEstimate(e),
	})
}

func (s *server) handleEstimateUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := readEstimateInput(w, r)
	var e store.Estimate
	if err == nil {
		e, err = s.estimates.Update(r.Context(), id, in)
	}

	if wantsJSON(r) {
		if err != nil {
			writeError(w, "update estimate", err)
			return
		}
		writeJSON(w, http.StatusOK, e)
		return
	}

	if err != nil {
		data := estimateFormViewData{baseViewData: s.base(r), ID: id, Input: in}
		status := formFailure(&data.baseViewData, "update estimate", err)
		if status == http.StatusNotFound {
			http.Error(w, data.ErrorMessage, status)
			return
		}
		s.renderEstimateForm(w, r, status, data)
		return
	}
	redirectWithSuccess(w, r, "/estimates/"+id, "Estimate updated")
}

func (s *server) handleEstimateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in statusInput
	if wantsJSON(r) {
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, "update estimate status", err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		in.Status = r.PostFormValue("status")
	}

	err := s.estimates.UpdateStatus(r.Context(), id, in.Status)
	if wantsJSON(r) {
		if err != nil {
			writeError(w, "update estimate status", err)
			return
		}
		writeJSON(w, http.StatusOK, in)
		return
	}
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			redirectWithMessage(w, r, "/estimates/"+id, "error", "Unknown status")
			return
		}
		redirectWithError(w, r, "/estimates/"+id, "update estimate status", err)
		return
	}
	redirectWithSuccess(w, r, "/estimates/"+id, "Status updated")
}

func (s *server) handleEstimateDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.estimates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirectWithError(w, r, "/estimates", "delete estimate", err)
		return
	}
	redirectWithSuccess(w, r, "/estimates", "Estimate deleted")
}

func (s *server) handleEstimatePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, err := s.estimates.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, "get estimate", err)
		return
	}
	c, err := s.store.GetCustomer(ctx, e.CustomerID)
	if err != nil {
		httpError(w, "get estimate customer", err)
		return
	}

	out, err := export.EstimatePDF(export.EstimateDocument{CompanyName: s.companyName, Estimate: e, Customer: c})
	if err != nil {
		httpError(w, "render estimate pdf", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, e.Number))
	_, _ = w.Write(out)
}

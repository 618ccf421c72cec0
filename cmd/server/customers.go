package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinternationals/estimator/internal/service"
	"github.com/kinternationals/estimator/internal/store"
)

type customersViewData struct {
	baseViewData
	Customers []store.Customer
}

type customerFormViewData struct {
	baseViewData
	ID    string
	Input service.CustomerInput
}

type customerDetailViewData struct {
	baseViewData
	Customer service.CustomerDetail
}

func customerInput(c store.Customer) service.CustomerInput {
	return service.CustomerInput{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		City:    c.City,
		State:   c.State,
		ZipCode: c.ZipCode,
		Country: c.Country,
		Notes:   c.Notes,
	}
}

func (s *server) handleCustomersList(w http.ResponseWriter, r *http.Request) {
	customers, err := s.customers.List(r.Context())
	if err != nil {
		httpError(w, "list customers", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "customers.html", customersViewData{baseViewData: s.base(r), Customers: customers})
}

func (s *server) handleCustomerNew(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, http.StatusOK, "customer_form.html", customerFormViewData{
		baseViewData: s.base(r),
		Input:        service.CustomerInput{Country: "India"},
	})
}

func (s *server) handleCustomerCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in := parseCustomerForm(r)
	c, err := s.customers.Create(r.Context(), in, currentUserID(r.Context()))
	if err != nil {
		data := customerFormViewData{baseViewData: s.base(r), Input: in}
		status := formFailure(&data.baseViewData, "create customer", err)
		s.renderTemplate(w, status, "customer_form.html", data)
		return
	}

	redirectWithSuccess(w, r, "/customers/"+c.ID, "Customer created")
}

func (s *server) handleCustomerDetail(w http.ResponseWriter, r *http.Request) {
	c, err := s.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, "get customer", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "customer_detail.html", customerDetailViewData{baseViewData: s.base(r), Customer: c})
}

func (s *server) handleCustomerEdit(w http.ResponseWriter, r *http.Request) {
	c, err := s.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, "get customer", err)
		return
	}
	s.renderTemplate(w, http.StatusOK, "customer_form.html", customerFormViewData{
		baseViewData: s.base(r),
		ID:           c.ID,
		Input:        customerInput(c.Customer),
	})
}

func (s *server) handleCustomerUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in := parseCustomerForm(r)
	if _, err := s.customers.Update(r.Context(), id, in); err != nil {
		data := customerFormViewData{baseViewData: s.base(r), ID: id, Input: in}
		status := formFailure(&data.baseViewData, "update customer", err)
		if status == http.StatusNotFound {
			http.Error(w, data.ErrorMessage, status)
			return
		}
		s.renderTemplate(w, status, "customer_form.html", data)
		return
	}

	redirectWithSuccess(w, r, "/customers/"+id, "Customer updated")
}

func (s *server) handleCustomerDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.customers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirectWithError(w, r, "/customers", "delete customer", err)
		return
	}
	redirectWithSuccess(w, r, "/customers", "Customer deleted")
}
